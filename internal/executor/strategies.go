package executor

import (
	"fmt"
	"strings"
)

// Selector convention shared with the browser layer: selectors beginning
// with "//" or "(" are XPath, everything else is CSS. XPath carries the
// text-matching strategies that CSS cannot express.

const lowercaseAlphabet = "abcdefghijklmnopqrstuvwxyz"
const uppercaseAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// clickStrategies is the ordered table for click targets. The table always
// has exactly 8 entries; inapplicable entries are recorded but skipped.
func clickStrategies(target string) []strategy {
	lit := xpathLiteral(target)
	lowerLit := xpathLiteral(strings.ToLower(target))
	return []strategy{
		// Exact visible text match on any element.
		{selector: fmt.Sprintf(`//*[normalize-space(text())=%s]`, lit)},
		// Button containing the text.
		{selector: fmt.Sprintf(`//button[contains(normalize-space(.), %s)]`, lit)},
		// Link containing the text.
		{selector: fmt.Sprintf(`//a[contains(normalize-space(.), %s)]`, lit)},
		// Accessibility label.
		{selector: fmt.Sprintf(`[aria-label=%q]`, target)},
		// Title attribute.
		{selector: fmt.Sprintf(`[title=%q]`, target)},
		// Loose case-insensitive text match.
		{selector: fmt.Sprintf(`//*[contains(translate(normalize-space(.), %q, %q), %s)]`,
			uppercaseAlphabet, lowercaseAlphabet, lowerLit)},
		// Raw id, only when the target is a plausible identifier.
		{selector: "#" + target, skip: !isIdentLike(target)},
		// Raw class, only when the target is a plausible identifier.
		{selector: "." + target, skip: !isIdentLike(target)},
	}
}

// inputStrategies locates text inputs and textareas for type/fill actions.
func inputStrategies(target string) []strategy {
	lit := xpathLiteral(target)
	return []strategy{
		{selector: fmt.Sprintf(`input[name=%q]`, target)},
		{selector: fmt.Sprintf(`input[placeholder*=%q]`, target)},
		{selector: fmt.Sprintf(`input[id*=%q]`, target)},
		{selector: fmt.Sprintf(`textarea[name=%q]`, target)},
		{selector: fmt.Sprintf(`textarea[placeholder*=%q]`, target)},
		{selector: fmt.Sprintf(`//label[contains(normalize-space(.), %s)]/following-sibling::input[1]`, lit)},
		{selector: fmt.Sprintf(`//label[contains(normalize-space(.), %s)]/following-sibling::textarea[1]`, lit)},
	}
}

// selectStrategies locates dropdowns; the last entry clicks the option text
// directly when no select element can be found.
func selectStrategies(target, value string) []strategy {
	lit := xpathLiteral(target)
	return []strategy{
		{selector: fmt.Sprintf(`select[name=%q]`, target)},
		{selector: fmt.Sprintf(`select[id*=%q]`, target)},
		{selector: fmt.Sprintf(`//label[contains(normalize-space(.), %s)]/following-sibling::select[1]`, lit)},
		{selector: fmt.Sprintf(`//option[normalize-space(text())=%s]`, xpathLiteral(value))},
	}
}

// checkStrategies locates checkboxes and radio buttons for check actions.
func checkStrategies(target string) []strategy {
	lit := xpathLiteral(target)
	return []strategy{
		{selector: fmt.Sprintf(`input[type="checkbox"][name=%q]`, target)},
		{selector: fmt.Sprintf(`input[type="radio"][name=%q]`, target)},
		{selector: fmt.Sprintf(`input[type="checkbox"][id*=%q]`, target)},
		{selector: fmt.Sprintf(`input[type="radio"][id*=%q]`, target)},
		{selector: fmt.Sprintf(`//label[contains(normalize-space(.), %s)]//input[@type="checkbox"]`, lit)},
		{selector: fmt.Sprintf(`//label[contains(normalize-space(.), %s)]//input[@type="radio"]`, lit)},
	}
}

// uncheckStrategies locates checkboxes for uncheck actions.
func uncheckStrategies(target string) []strategy {
	lit := xpathLiteral(target)
	return []strategy{
		{selector: fmt.Sprintf(`input[type="checkbox"][name=%q]`, target)},
		{selector: fmt.Sprintf(`input[type="checkbox"][id*=%q]`, target)},
		{selector: fmt.Sprintf(`//label[contains(normalize-space(.), %s)]//input[@type="checkbox"]`, lit)},
	}
}

// isIdentLike reports whether the target could plausibly be a raw id or
// class name rather than visible text.
func isIdentLike(target string) bool {
	if target == "" || strings.ContainsAny(target, " \t\n'\"") {
		return false
	}
	for _, r := range target {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// xpathLiteral quotes a string for use inside an XPath expression, using
// concat() when the value mixes quote characters.
func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	var parts []string
	for _, chunk := range strings.SplitAfter(s, `"`) {
		if strings.HasSuffix(chunk, `"`) {
			if body := strings.TrimSuffix(chunk, `"`); body != "" {
				parts = append(parts, `"`+body+`"`)
			}
			parts = append(parts, `'"'`)
		} else if chunk != "" {
			parts = append(parts, `"`+chunk+`"`)
		}
	}
	return "concat(" + strings.Join(parts, ", ") + ")"
}
