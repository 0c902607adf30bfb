package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dohr-michael/askbetter/internal/dialogue"
	"github.com/dohr-michael/askbetter/internal/i18n"
	"github.com/dohr-michael/askbetter/internal/modes"
)

const (
	ToolListModes = "list_modes"
	ToolRefine    = "refine"
)

// handler runs a tool with its raw JSON arguments and returns the text result.
type handler func(ctx context.Context, args json.RawMessage) (string, error)

type tool struct {
	spec toolSpec
	run  handler
}

// NewMCPServer creates an MCP server exposing the refinement tools.
// If filter is non-empty, only the tool with that name is exposed.
func NewMCPServer(model dialogue.Model, catalog *i18n.Catalog, version, filter string) *mcpsdk.Server {
	server := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    "askbetter",
		Version: version,
	}, nil)

	for _, t := range tools(model, catalog) {
		if filter != "" && t.spec.Name != filter {
			continue
		}

		// Capture tool in closure
		run := t.run
		toolName := t.spec.Name

		server.AddTool(toMCPTool(t.spec), func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
			result, err := run(ctx, req.Params.Arguments)
			if err != nil {
				slog.Debug("mcp tool error", "tool", toolName, "error", err)
				return &mcpsdk.CallToolResult{
					IsError: true,
					Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
				}, nil
			}
			return &mcpsdk.CallToolResult{
				Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: result}},
			}, nil
		})

		slog.Debug("mcp tool registered", "tool", toolName)
	}

	return server
}

func tools(model dialogue.Model, catalog *i18n.Catalog) []tool {
	modeIDs := make([]string, 0, len(modes.All()))
	for _, m := range modes.All() {
		modeIDs = append(modeIDs, string(m.ID))
	}
	toneIDs := make([]string, 0, len(modes.Tones()))
	for _, t := range modes.Tones() {
		toneIDs = append(toneIDs, string(t))
	}

	return []tool{
		{
			spec: toolSpec{
				Name:        ToolListModes,
				Description: "List the refinement modes and tones.",
				Parameters: map[string]paramSpec{
					"lang": {Type: "string", Description: "Language of names and descriptions", Enum: catalog.Languages()},
				},
			},
			run: listModes(catalog),
		},
		{
			spec: toolSpec{
				Name: ToolRefine,
				Description: "Refine a question or prompt. Returns a better and a best version, " +
					"plus a corrected input in ASK_BETTER mode.",
				Parameters: map[string]paramSpec{
					"text": {Type: "string", Description: "The text to refine", Required: true},
					"mode": {Type: "string", Description: "Refinement mode", Required: true, Enum: modeIDs},
					"tone": {Type: "string", Description: "Tone of the refined text", Enum: toneIDs},
				},
			},
			run: refine(model),
		},
	}
}

type modeEntry struct {
	ID          modes.ID `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
}

type toneEntry struct {
	ID    modes.Tone `json:"id"`
	Label string     `json:"label"`
}

func listModes(catalog *i18n.Catalog) handler {
	return func(_ context.Context, args json.RawMessage) (string, error) {
		var in struct {
			Lang string `json:"lang"`
		}
		if len(args) > 0 {
			if err := json.Unmarshal(args, &in); err != nil {
				return "", fmt.Errorf("invalid arguments: %w", err)
			}
		}
		lang := catalog.Match(in.Lang)

		out := struct {
			Modes []modeEntry `json:"modes"`
			Tones []toneEntry `json:"tones"`
		}{}
		for _, m := range modes.All() {
			prefix := "mode." + string(m.ID) + "."
			out.Modes = append(out.Modes, modeEntry{
				ID:          m.ID,
				Name:        catalog.T(lang, prefix+"name"),
				Description: catalog.T(lang, prefix+"description"),
			})
		}
		for _, t := range modes.Tones() {
			out.Tones = append(out.Tones, toneEntry{ID: t, Label: catalog.T(lang, "tone."+string(t))})
		}

		data, err := json.Marshal(out)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}

type refineResult struct {
	Reply     string  `json:"reply"`
	Corrected *string `json:"corrected,omitempty"`
	Better    *string `json:"better,omitempty"`
	Best      *string `json:"best,omitempty"`
}

// refine runs a single turn on a throwaway engine.
func refine(model dialogue.Model) handler {
	return func(ctx context.Context, args json.RawMessage) (string, error) {
		var in struct {
			Text string `json:"text"`
			Mode string `json:"mode"`
			Tone string `json:"tone"`
		}
		if err := json.Unmarshal(args, &in); err != nil {
			return "", fmt.Errorf("invalid arguments: %w", err)
		}
		tone, err := modes.ParseTone(in.Tone)
		if err != nil {
			return "", err
		}

		engine := dialogue.NewEngine(dialogue.EngineConfig{UserID: "mcp", Model: model})
		if err := engine.Submit(ctx, in.Text, modes.ID(in.Mode), tone); err != nil {
			return "", err
		}

		st := engine.State()
		if st.Error != "" {
			return "", errors.New(st.Error)
		}
		res := refineResult{
			Corrected: st.Outputs.Corrected,
			Better:    st.Outputs.Better,
			Best:      st.Outputs.Best,
		}
		if n := len(st.Messages); n > 0 {
			res.Reply = st.Messages[n-1].Text
		}

		data, err := json.Marshal(res)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}
