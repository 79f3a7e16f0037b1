package vtable

import (
	"context"

	"github.com/hupe1980/vtable/docstore"
	"github.com/hupe1980/vtable/model"
)

// NewMessage is the input of SendMessage.
type NewMessage struct {
	Text   string `json:"text"`
	Author string `json:"author"`
}

// SendMessage stores a chat message.
func (db *DB) SendMessage(ctx context.Context, in NewMessage) (model.MessageID, error) {
	id := model.NewMessageID()
	err := db.update(ctx, "sendMessage", func(tx *docstore.Tx) error {
		return messages.Insert(tx, string(id), model.Message{
			ID:        id,
			Text:      in.Text,
			Author:    in.Author,
			CreatedAt: db.millis(),
		})
	}, "message", id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// ListMessages returns all messages, oldest first.
func (db *DB) ListMessages(ctx context.Context) ([]model.Message, error) {
	var out []model.Message
	err := db.view(ctx, "listMessages", func(tx *docstore.Tx) error {
		var err error
		out, err = messages.Query(tx, indexByCreatedAt).Collect()
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
