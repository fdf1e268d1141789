package chunk

import (
	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/Aman-CERP/docvec/internal/docerrors"
)

// NormalizeHTML converts HTML source content to Markdown so that
// FileTypeHTML documents can be parsed by the same structural chunker as
// native Markdown, giving the system a single chunking grammar.
func NormalizeHTML(html string) (string, error) {
	md, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		return "", docerrors.Validation("failed to normalize HTML to markdown", err)
	}
	return md, nil
}
