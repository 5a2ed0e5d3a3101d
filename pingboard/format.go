package pingboard

import (
	"strconv"
	"strings"

	"github.com/sandertv/gophertunnel/minecraft/text"
)

// Placeholders are the values substituted into display name templates.
type Placeholders struct {
	ServerName    string
	ServerVersion string
	APIVersion    string
	OnlinePlayers int
	MaxPlayers    int
}

// Expand replaces every placeholder in template.
func (p Placeholders) Expand(template string) string {
	if !strings.Contains(template, "{") {
		return template
	}
	return strings.NewReplacer(
		"{SERVER_NAME}", p.ServerName,
		"{SERVER_VERSION}", p.ServerVersion,
		"{API_VERSION}", p.APIVersion,
		"{ONLINE_PLAYERS}", strconv.Itoa(p.OnlinePlayers),
		"{MAX_PLAYERS}", strconv.Itoa(p.MaxPlayers),
	).Replace(template)
}

// formatCodes holds every character that may follow a formatting code prefix.
const formatCodes = "0123456789abcdefghijklmnopqrstuv"

// Colourise converts '&' formatting codes, and colour tags such as <red>, to
// the '§' codes understood by the client. A '&' that does not start a code is
// kept as is.
func Colourise(s string) string {
	if strings.Contains(s, "&") {
		var b strings.Builder
		b.Grow(len(s) + 8)
		for i := 0; i < len(s); i++ {
			if s[i] == '&' && i+1 < len(s) && strings.IndexByte(formatCodes, lower(s[i+1])) >= 0 {
				b.WriteString("§")
				b.WriteByte(lower(s[i+1]))
				i++
				continue
			}
			b.WriteByte(s[i])
		}
		s = b.String()
	}
	if !strings.Contains(s, "<") {
		return s
	}
	// The tag parser decodes HTML entities, so a remaining '&' is escaped
	// first. Colourf always starts its output with a reset, which is dropped.
	s = text.Colourf("%s", strings.ReplaceAll(s, "&", "&amp;"))
	return strings.TrimPrefix(s, text.Reset)
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}
