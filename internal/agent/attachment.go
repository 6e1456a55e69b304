package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/fluux-agent/gateway/internal/domain/entity"
	"github.com/fluux-agent/gateway/internal/files"
	"github.com/fluux-agent/gateway/internal/llm"
	"github.com/fluux-agent/gateway/internal/xmpp"
	"go.uber.org/zap"
)

// runAttachmentTask downloads every OOB URL on an inbound message
// concurrently with the main event loop, folds the results into content
// blocks, and runs the agentic loop with the original body appended as a
// trailing text block. It runs detached (its own context) so a slow
// download never stalls stanza processing.
func (r *Runtime) runAttachmentTask(ctx context.Context, msg entity.InboundMessage) {
	bare := string(entity.Bare(msg.From))
	destDir := r.memory.FilesDir(bare)

	var blocks []llm.ContentBlock
	for _, oob := range msg.Oob {
		f, err := r.files.Download(ctx, oob.URL, destDir)
		if err != nil {
			r.logger.Warn("attachment download failed", zap.String("url", oob.URL), zap.Error(err))
			blocks = append(blocks, files.FailureContentBlock(oob.URL, err))
			continue
		}
		blocks = append(blocks, files.ToContentBlock(f))
	}

	body := strings.TrimSpace(msg.Body)
	summary := attachmentSummaryText(body, len(msg.Oob))
	if err := r.memory.StoreMessage(bare, "user", summary, msg.ID, "", nil, ""); err != nil {
		r.logger.Warn("failed to store attachment inbound message", zap.Error(err))
	}

	reply, err := r.converse(ctx, bare, body, blocks, false)
	if err != nil {
		r.logger.Warn("agentic loop failed for attachment task", zap.Error(err))
		r.send(xmpp.SendChatStateCmd{To: msg.From, State: xmpp.ChatStatePaused, MsgType: "chat"})
		r.send(xmpp.SendMessageCmd{To: msg.From, Body: fmt.Sprintf("Sorry, something went wrong with that attachment: %v", err)})
		return
	}
	r.send(xmpp.SendMessageCmd{To: msg.From, Body: reply})
}

func attachmentSummaryText(body string, fileCount int) string {
	if body != "" {
		return body
	}
	return fmt.Sprintf("[sent %d file(s)]", fileCount)
}
