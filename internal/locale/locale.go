package locale

import "strings"

const (
	LanguageChinese = "zh"
	LanguageEnglish = "en"
)

// Default 为未指定语言时的回退语言
const Default = LanguageEnglish

type Preference struct {
	Language string
	HTMLLang string
}

func NormalizeLanguage(raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "zh") || trimmed == "cn" {
		return LanguageChinese
	}
	if strings.HasPrefix(trimmed, "en") {
		return LanguageEnglish
	}
	return ""
}

// LanguageFromAcceptLanguage 按 Accept-Language 中出现的先后顺序取第一个受支持的语言
func LanguageFromAcceptLanguage(header string) string {
	for _, part := range strings.Split(header, ",") {
		tag, _, _ := strings.Cut(part, ";")
		if language := NormalizeLanguage(tag); language != "" {
			return language
		}
	}
	return ""
}

// Resolve 依次尝试显式参数与 Accept-Language，都无法识别时返回 Default
func Resolve(explicit, acceptLanguage string) string {
	if language := NormalizeLanguage(explicit); language != "" {
		return language
	}
	if language := LanguageFromAcceptLanguage(acceptLanguage); language != "" {
		return language
	}
	return Default
}

func PreferenceForLanguage(language string) Preference {
	if NormalizeLanguage(language) == LanguageChinese {
		return Preference{Language: LanguageChinese, HTMLLang: "zh-CN"}
	}
	return Preference{Language: LanguageEnglish, HTMLLang: "en-US"}
}
