package models

import (
	"context"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// chatModelGenerator adapts an eino chat model to a single-turn Generator.
type chatModelGenerator struct {
	model model.BaseChatModel
}

func (g *chatModelGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	msg, err := g.model.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return "", HandleError(err)
	}
	if msg == nil {
		return "", nil
	}
	return msg.Content, nil
}
