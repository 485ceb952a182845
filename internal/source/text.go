// internal/source/text.go
package source

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"

	"github.com/valpere/CellarScrapexter/pkg/types"
)

const maxLineSize = 1 << 20

// TextSource reads one accessibility-style description per line. Blank
// lines and lines starting with '#' are ignored.
type TextSource struct {
	Path string
}

// Name returns the source path
func (s *TextSource) Name() string { return s.Path }

// Records parses every line of the file
func (s *TextSource) Records(ctx context.Context, parse LineParser) ([]types.WineRecord, []error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, openFailure(s.Path, err)
	}
	defer f.Close()

	return ParseLines(ctx, s.Path, f, parse)
}

// ParseLines runs parse over each non-blank line of r
func ParseLines(ctx context.Context, name string, r io.Reader, parse LineParser) ([]types.WineRecord, []error) {
	var (
		records []types.WineRecord
		errs    []error
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			return records, errs
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		rec, err := parse(line)
		if err != nil {
			errs = append(errs, lineFailure(name, lineNo, err))
			continue
		}
		records = append(records, rec)
	}

	if err := scanner.Err(); err != nil {
		errs = append(errs, openFailure(name, err)...)
	}
	return records, errs
}
