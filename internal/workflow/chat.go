package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"atlas/internal/logging"
	"atlas/internal/services"
)

const (
	imageFailedMessage      = "Üzgünüm, resim oluştururken bir hata oldu."
	chatConnectionMessage   = "Bir bağlantı hatası oluştu. Lütfen backend sunucusunun açık olduğundan emin olun."
	drawFailedMessage       = "Üzgünüm, çizim oluşturulurken bir hata oldu."
	drawConnectionMessage   = "Hata: Backend bağlantısı kurulamadı."
	voiceImageFailedMessage = "Resim oluşturma başarısız oldu."
)

// Chat handles the conversation: text and voice messages, drawing requests
// and spoken playback of replies. One request is processed at a time.
type Chat struct {
	store   *Store
	backend Backend
	logger  *slog.Logger
}

type imageFailure struct {
	failed      string
	unreachable string
}

// SendMessage appends text as a user entry and answers it, either with a
// generated image when the text asks for one or with an LLM reply. Backend
// failures become assistant entries rather than errors.
func (c *Chat) SendMessage(ctx context.Context, text string) error {
	if err := requireText(text); err != nil {
		return err
	}
	if err := c.claim(&ConversationEntry{Role: RoleUser, Content: text}); err != nil {
		return err
	}
	defer c.release()

	if HasImageIntent(text) {
		c.generateImage(ctx, text, imageFailure{failed: imageFailedMessage, unreachable: chatConnectionMessage})
		return nil
	}
	res, err := c.backend.Chat(ctx, text)
	if err != nil {
		c.logger.Warn("chat request failed",
			logging.Error(err),
			logging.Event("chat_failed"),
			logging.Hint("check that the backend is running"),
			logging.Impact("reply replaced by a connection notice"),
		)
		c.reply(ConversationEntry{Role: RoleAssistant, Content: chatConnectionMessage})
		return nil
	}
	c.reply(ConversationEntry{Role: RoleAssistant, Content: res.Response})
	return nil
}

// Draw renders prompt as an explicit drawing request.
func (c *Chat) Draw(ctx context.Context, prompt string) error {
	if err := requireText(prompt); err != nil {
		return err
	}
	if err := c.claim(&ConversationEntry{Role: RoleUser, Content: "Çizim isteği: " + prompt}); err != nil {
		return err
	}
	defer c.release()
	c.generateImage(ctx, prompt, imageFailure{failed: drawFailedMessage, unreachable: drawConnectionMessage})
	return nil
}

// Transcribe turns a recorded clip into a user message and answers it. It
// returns the recognized text, which is empty when nothing was understood.
func (c *Chat) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", services.Wrap(services.ErrValidation, "chat", "transcribe", "empty recording", nil)
	}
	if err := c.claim(nil); err != nil {
		return "", err
	}
	defer c.release()

	text, err := c.backend.SpeechToText(ctx, audio)
	if err != nil {
		c.logger.Warn("speech recognition failed",
			logging.Error(err),
			logging.Event("stt_failed"),
			logging.Hint("check the backend speech service"),
			logging.Impact("recording discarded"),
		)
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}
	c.reply(ConversationEntry{Role: RoleUser, Content: text})

	if HasImageIntent(text) {
		c.generateImage(ctx, text, imageFailure{failed: voiceImageFailedMessage})
		return text, nil
	}
	res, err := c.backend.Chat(ctx, text)
	if err != nil {
		c.logger.Warn("chat request failed",
			logging.Error(err),
			logging.Event("chat_failed"),
			logging.Hint("check that the backend is running"),
		)
		return text, err
	}
	c.reply(ConversationEntry{Role: RoleAssistant, Content: res.Response})
	return text, nil
}

// Speak synthesizes the transcript entry at index. Only one synthesis runs
// at a time.
func (c *Chat) Speak(ctx context.Context, index int) ([]byte, string, error) {
	var (
		text string
		err  error
	)
	c.store.update(func() {
		if index < 0 || index >= len(c.store.st.transcript) {
			err = services.Wrap(services.ErrNotFound, "chat", "speak", fmt.Sprintf("no message at index %d", index), nil)
			return
		}
		if c.store.st.speaking >= 0 {
			err = services.Wrap(services.ErrBusy, "chat", "speak", "playback already loading", nil)
			return
		}
		text = c.store.st.transcript[index].Content
		if strings.TrimSpace(text) == "" {
			err = services.Wrap(services.ErrValidation, "chat", "speak", "message has no text", nil)
			return
		}
		c.store.st.speaking = index
	})
	if err != nil {
		return nil, "", err
	}
	defer c.store.update(func() { c.store.st.speaking = -1 })

	audio, contentType, err := c.backend.TextToSpeech(ctx, text)
	if err != nil {
		c.logger.Debug("text to speech failed", logging.Error(err), logging.Int("index", index))
		return nil, "", err
	}
	return audio, contentType, nil
}

func requireText(input string) error {
	if strings.TrimSpace(input) == "" {
		return services.Wrap(services.ErrValidation, "chat", "send", "message is empty", nil)
	}
	return nil
}

// claim marks the conversation busy and appends entry when given.
func (c *Chat) claim(entry *ConversationEntry) error {
	var err error
	c.store.update(func() {
		if c.store.st.processing {
			err = services.Wrap(services.ErrBusy, "chat", "send", "another message is being processed", nil)
			return
		}
		c.store.st.processing = true
		if entry != nil {
			c.store.appendEntryLocked(*entry)
		}
	})
	return err
}

func (c *Chat) release() {
	c.store.update(func() { c.store.st.processing = false })
}

func (c *Chat) reply(entry ConversationEntry) {
	c.store.update(func() { c.store.appendEntryLocked(entry) })
}

func (c *Chat) generateImage(ctx context.Context, prompt string, failure imageFailure) {
	res, err := c.backend.GenerateImage(ctx, prompt)
	if err != nil {
		c.logger.Warn("image request failed",
			logging.Error(err),
			logging.Event("image_failed"),
			logging.Hint("check that the backend is running"),
			logging.Impact("no image generated"),
		)
		if failure.unreachable != "" {
			c.reply(ConversationEntry{Role: RoleAssistant, Content: failure.unreachable})
		}
		return
	}
	if !res.Success {
		c.logger.Info("image generation rejected", logging.String("reason", res.Error))
		c.reply(ConversationEntry{Role: RoleAssistant, Content: failure.failed})
		return
	}
	duration := res.Duration
	c.store.update(func() {
		c.store.appendEntryLocked(ConversationEntry{
			Role:     RoleAssistant,
			Content:  fmt.Sprintf("\"%s\" için görseliniz hazır:", res.Original),
			Image:    res.ImageURL,
			Duration: &duration,
		})
		c.store.addGalleryLocked(res.ImageURL, res.Original)
	})
}
