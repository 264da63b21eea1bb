package executor

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/veracity-cli/api/schemas"
)

// -- Mock Page --

type MockPage struct {
	mock.Mock
}

func (m *MockPage) Navigate(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

func (m *MockPage) WaitNetworkIdle(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockPage) Click(ctx context.Context, selector string) error {
	return m.Called(ctx, selector).Error(0)
}

func (m *MockPage) Fill(ctx context.Context, selector, value string) error {
	return m.Called(ctx, selector, value).Error(0)
}

func (m *MockPage) SelectOption(ctx context.Context, selector, value string) error {
	return m.Called(ctx, selector, value).Error(0)
}

func (m *MockPage) SetChecked(ctx context.Context, selector string, checked bool) error {
	return m.Called(ctx, selector, checked).Error(0)
}

func (m *MockPage) WaitVisible(ctx context.Context, selector string) error {
	return m.Called(ctx, selector).Error(0)
}

func (m *MockPage) ScrollIntoView(ctx context.Context, selector string) error {
	return m.Called(ctx, selector).Error(0)
}

func (m *MockPage) ScrollTo(ctx context.Context, position string) error {
	return m.Called(ctx, position).Error(0)
}

func (m *MockPage) Sleep(ctx context.Context, d time.Duration) error {
	return m.Called(ctx, d).Error(0)
}

func (m *MockPage) Screenshot(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockPage) Content(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockPage) URL(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockPage) Title(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockPage) Close() error {
	return m.Called().Error(0)
}

// expectStateCapture stubs the four evidence reads every step performs.
func (m *MockPage) expectStateCapture() {
	m.On("URL", mock.Anything).Return("https://example.com/page", nil).Maybe()
	m.On("Title", mock.Anything).Return("Example Page", nil).Maybe()
	m.On("Screenshot", mock.Anything).Return([]byte{0x89, 0x50}, nil).Maybe()
	m.On("Content", mock.Anything).Return("<html><body>ok</body></html>", nil).Maybe()
}

// -- Mock Verifier --

type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(ctx context.Context, requirement string, ev schemas.Evidence) (schemas.VerificationResult, error) {
	args := m.Called(ctx, requirement, ev)
	return args.Get(0).(schemas.VerificationResult), args.Error(1)
}

func (m *MockVerifier) Model() string {
	return m.Called().String(0)
}

// -- Mock Browser Manager --

type MockBrowserManager struct {
	mock.Mock
}

func (m *MockBrowserManager) NewPage(ctx context.Context) (schemas.Page, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(schemas.Page), args.Error(1)
}

func (m *MockBrowserManager) Shutdown(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
