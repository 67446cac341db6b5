package ical

import (
	"strings"
	"unicode/utf8"
)

const maxLineOctets = 75

// Transform a string writer into a content-line writer: each call writes one
// logical line, folded every 75 octets with a leading space on continuation
// lines and terminated by CRLF. Example (assuming 6-octet lines):
//
//	var sb strings.Builder
//	writeLine := foldWriter(sb.WriteString)
//	writeLine("Hello,world!")
//
// Output:
//
//	`Hello,
//	 world!`
func foldWriter(writer func(string) (int, error)) func(string) error {
	return func(line string) error {
		limit := maxLineOctets
		for len(line) > limit {
			cut := limit
			// never split a rune
			for cut > 0 && !utf8.RuneStart(line[cut]) {
				cut--
			}
			if _, err := writer(line[:cut] + "\r\n "); err != nil {
				return err
			}
			line = line[cut:]
			// the leading space counts toward the next line
			limit = maxLineOctets - 1
		}
		_, err := writer(line + "\r\n")
		return err
	}
}

var textEscaper = strings.NewReplacer(
	`\`, `\\`,
	";", `\;`,
	",", `\,`,
	"\r\n", `\n`,
	"\n", `\n`,
)

// escapeText escapes a TEXT property value.
func escapeText(s string) string {
	return textEscaper.Replace(s)
}

// Create an iCalendar-compatible common name parameter value. Characters that
// would break the parameter are dropped.
func commonName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ':', ';', ',', '"', '\n', '\r', '\t':
			return -1
		}
		return r
	}, name)
}
