package cmd

// Version is set at build time via ldflags:
//
//	go build -ldflags "-X github.com/xkilldash9x/veracity-cli/cmd.Version=1.2.3"
var Version = "0.1.0"
