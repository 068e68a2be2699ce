package workflow

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type uploadHint struct {
	match func(lower string) bool
	lines []string
}

var uploadHints = []uploadHint{
	{
		match: func(lower string) bool {
			return strings.Contains(lower, "only photo or video can be accepted as media type")
		},
		lines: []string{
			"- Tunnel terminalini açık tut (cloudflared kapanmasın).",
			"- PUBLIC_BASE_URL güncel olsun.",
			"- Baglanti Merkezi > ImgBB Fallback alanina API key gir ve kaydet.",
			"- Tekrar dene (sistem fallback ile tekrar dener).",
		},
	},
	{
		match: func(lower string) bool {
			return strings.Contains(lower, "unsupported post request") ||
				(strings.Contains(lower, "code") && strings.Contains(lower, "100"))
		},
		lines: []string{
			"- IG_USER_ID / FB_PAGE_ID değerlerini tekrar kontrol et.",
			"- Graph alanlarını UI'dan yeniden kaydet.",
		},
	},
	{
		match: func(lower string) bool {
			return strings.Contains(lower, "login_required")
		},
		lines: []string{
			"- Graph API modunu kullan.",
			"- Legacy kullanıyorsan Session Sıfırla ile tekrar login yap.",
		},
	},
}

// UploadHint returns the remediation lines for a rejected upload, or nil
// when the message matches no known failure.
func UploadHint(message string) []string {
	lower := strings.ToLower(message)
	for _, hint := range uploadHints {
		if hint.match(lower) {
			return append([]string(nil), hint.lines...)
		}
	}
	return nil
}

// FormatUploadError appends the matching remediation hint to message.
// Unmatched messages are returned verbatim.
func FormatUploadError(message string) string {
	lines := UploadHint(message)
	if lines == nil {
		return message
	}
	out := make([]string, 0, len(lines)+3)
	out = append(out, message, "", "Öneri:")
	out = append(out, lines...)
	return strings.Join(out, "\n")
}

var imageIntentWords = []string{"çiz", "oluştur", "resim"}

// HasImageIntent reports whether a chat message asks for a picture. Both
// Turkish and locale-neutral lowercasing are tried so "ÇİZ" and "RESIM"
// match alike.
func HasImageIntent(text string) bool {
	candidates := []string{
		cases.Lower(language.Turkish).String(text),
		strings.ToLower(text),
	}
	for _, lower := range candidates {
		for _, word := range imageIntentWords {
			if strings.Contains(lower, word) {
				return true
			}
		}
	}
	return false
}
