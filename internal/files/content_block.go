package files

import (
	"encoding/base64"
	"fmt"

	"github.com/fluux-agent/gateway/internal/llm"
)

// ToContentBlock converts a downloaded attachment into the content block
// the agentic loop folds into the user's next message: images/documents
// go in inline for the model to see, everything else becomes a text note
// that the file is stored but not analyzed.
func ToContentBlock(f *DownloadedFile) llm.ContentBlock {
	switch f.Category {
	case CategoryImage:
		return llm.ImageBlock{MimeType: f.ContentType, Data: base64.StdEncoding.EncodeToString(f.Data)}
	case CategoryDocument:
		return llm.DocumentBlock{MimeType: f.ContentType, Data: base64.StdEncoding.EncodeToString(f.Data), Filename: f.Filename}
	default:
		return llm.TextBlock{Text: fmt.Sprintf("[stored file %s (%s), not analyzed]", f.Filename, f.ContentType)}
	}
}

// FailureContentBlock builds the text block reported for a failed download.
func FailureContentBlock(rawURL string, err error) llm.ContentBlock {
	return llm.TextBlock{Text: fmt.Sprintf("[failed to download %s: %v]", rawURL, err)}
}
