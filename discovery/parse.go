package discovery

import (
	"bytes"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DecodeOutput converts launcher output to a string. The Windows launcher
// writes UTF-16LE, which is detected by a byte order mark or by NUL bytes in
// odd positions.
func DecodeOutput(raw []byte) string {
	if !isUTF16LE(raw) {
		return string(raw)
	}

	decoder := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()

	out, _, err := transform.Bytes(decoder, raw)
	if err != nil {
		return string(bytes.ReplaceAll(raw, []byte{0}, nil))
	}

	return string(out)
}

func isUTF16LE(raw []byte) bool {
	if len(raw) >= 2 && raw[0] == 0xFF && raw[1] == 0xFE {
		return true
	}

	if len(raw) < 2 {
		return false
	}

	zeros := 0
	for i := 1; i < len(raw); i += 2 {
		if raw[i] == 0 {
			zeros++
		}
	}

	return zeros*2 >= len(raw)/2
}

// ParseDistributions extracts distribution names from "--list --verbose"
// output. The header line and blank lines are dropped and the default
// distribution marker is stripped.
func ParseDistributions(raw []byte) []string {
	distros := []string{}

	for _, line := range strings.Split(DecodeOutput(raw), "\n") {
		fields := strings.Fields(line)
		if len(fields) > 0 && fields[0] == "*" {
			fields = fields[1:]
		}

		if len(fields) == 0 || strings.EqualFold(fields[0], "NAME") {
			continue
		}

		distros = append(distros, strings.TrimPrefix(fields[0], "*"))
	}

	return distros
}
