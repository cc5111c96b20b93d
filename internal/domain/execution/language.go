package execution

import (
	"fmt"
	"strings"
)

// Language identifies a programming language a submission may be written in.
// The set is closed: every language needs a sandbox strategy, so new values
// only appear together with runtime support.
type Language string

const (
	LanguagePython Language = "python"
	LanguageGo     Language = "go"
	LanguageCPP    Language = "cpp"
	LanguageJava   Language = "java"
)

// Languages returns all supported languages in canonical order.
func Languages() []Language {
	return []Language{LanguagePython, LanguageGo, LanguageCPP, LanguageJava}
}

// Known reports whether lang is a supported language.
func Known(lang Language) bool {
	switch lang {
	case LanguagePython, LanguageGo, LanguageCPP, LanguageJava:
		return true
	default:
		return false
	}
}

// ParseLanguage maps a wire-format language name onto a Language, accepting
// the common aliases submissions arrive with.
func ParseLanguage(raw string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "python", "python3", "py":
		return LanguagePython, nil
	case "go", "golang":
		return LanguageGo, nil
	case "cpp", "c++", "cxx":
		return LanguageCPP, nil
	case "java":
		return LanguageJava, nil
	default:
		return "", fmt.Errorf("unknown language %q", raw)
	}
}
