package mcpserver

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sensiblebit/certfields"
	"github.com/sensiblebit/certfields/internal"
)

func handleCer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	raw, ok := args[argInput].(string)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("requires certificate input; got %s", jsonType(args[argInput]))), nil
	}

	var in certfields.Input
	var password *string
	switch encoding := request.GetString(argEncoding, encodingText); encoding {
	case encodingText:
		in = certfields.TextInput(raw)
	case encodingBase64:
		data, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("input is not valid base64: %v", err)), nil
		}
		in = certfields.BinaryInput(data)
		password, err = passwordArg(args)
		if err != nil {
			return toolError(err), nil
		}
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unsupported encoding %q (use %s or %s)", encoding, encodingText, encodingBase64)), nil
	}

	records, err := certfields.Decode(in, password)
	if err != nil {
		slog.DebugContext(ctx, "certificate extraction failed", "error", err)
		return toolError(err), nil
	}
	out, err := certfields.Select(records, request.GetBool(argList, false))
	if err != nil {
		return toolError(err), nil
	}
	text, err := internal.FormatRecords(out, "json")
	if err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "extracted certificate fields", "records", len(records))
	return mcp.NewToolResultText(text), nil
}

// passwordArg reads the optional password. Null counts as absent.
func passwordArg(args map[string]any) (*string, error) {
	v, ok := args[argPassword]
	if !ok || v == nil {
		return nil, nil
	}
	pwd, ok := v.(string)
	if !ok {
		return nil, &certfields.Error{Kind: certfields.KindPassword, Err: fmt.Errorf("got %s", jsonType(v))}
	}
	return &pwd, nil
}

// toolError renders err as a tool-level failure, with the detail of a
// certfields error on a separate help line.
func toolError(err error) *mcp.CallToolResult {
	var e *certfields.Error
	if errors.As(err, &e) && e.Help() != "" {
		return mcp.NewToolResultError(e.Label() + "\nhelp: " + e.Help())
	}
	if e != nil {
		return mcp.NewToolResultError(e.Label())
	}
	return mcp.NewToolResultError(err.Error())
}

// jsonType names the JSON type of a decoded argument value.
func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, int, int64, float32:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
