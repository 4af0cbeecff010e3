package export

import (
	"context"
	"errors"
	"fmt"
	"html"
	"os/exec"
	"strings"
)

// PandocDOCXEncoder converts the word document through pandoc. It trades the
// native encoder's fixed styling for pandoc's reference-doc support.
type PandocDOCXEncoder struct {
	// ReferenceDoc is passed as --reference-doc when set.
	ReferenceDoc string
}

func (p PandocDOCXEncoder) Encode(ctx context.Context, doc wordDocument) ([]byte, error) {
	// Check if pandoc is available
	if _, err := exec.LookPath("pandoc"); err != nil {
		return nil, fmt.Errorf("%w: pandoc not installed", ErrDOCXDependencyMissing)
	}

	args := []string{"-f", "html", "-t", "docx", "--standalone", "-o", "-"}
	if p.ReferenceDoc != "" {
		args = append(args, "--reference-doc", p.ReferenceDoc)
	}
	cmd := exec.CommandContext(ctx, "pandoc", args...)
	cmd.Stdin = strings.NewReader(wordDocumentHTML(doc))

	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("pandoc failed: %s", string(exitErr.Stderr))
		}
		return nil, fmt.Errorf("pandoc execution failed: %w", err)
	}
	return output, nil
}

// wordDocumentHTML renders the block list as plain HTML for pandoc.
func wordDocumentHTML(doc wordDocument) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><head><meta charset=\"UTF-8\"><title>")
	b.WriteString(html.EscapeString(doc.Title))
	b.WriteString("</title></head><body>")
	for _, block := range doc.Blocks {
		text := html.EscapeString(block.Text)
		text = strings.ReplaceAll(text, "\n", "<br>")
		switch block.Kind {
		case blockTitle:
			b.WriteString("<h1>" + text + "</h1>")
		case blockDate:
			b.WriteString("<p>" + text + "</p>")
		case blockDivider:
			b.WriteString("<hr>")
		case blockHeading:
			b.WriteString("<h2>" + text + "</h2>")
		case blockSubtitle:
			b.WriteString("<p><em>" + text + "</em></p>")
		case blockBody:
			b.WriteString("<p>" + text + "</p>")
		}
	}
	if doc.Footer != "" {
		b.WriteString("<hr><p><small>" + html.EscapeString(doc.Footer) + "</small></p>")
	}
	b.WriteString("</body></html>")
	return b.String()
}
