package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	toolName = "cer"

	argInput    = "input"
	argEncoding = "encoding"
	argList     = "list"
	argPassword = "password"

	encodingText   = "text"
	encodingBase64 = "base64"
)

func cerTool() mcp.Tool {
	return mcp.NewTool(toolName,
		mcp.WithDescription("Extract common names, distinguished names, DNS subject alternative names, "+
			"expiration and SHA-1 thumbprint from PEM certificates or a PKCS#12/PFX bundle"),
		mcp.WithString(argInput,
			mcp.Required(),
			mcp.Description("PEM text, or base64 of a PKCS#12 file when encoding is 'base64'"),
		),
		mcp.WithString(argEncoding,
			mcp.Description("How input is encoded: 'text' for PEM or 'base64' for PKCS#12 bytes (default: text)"),
			mcp.DefaultString(encodingText),
			mcp.Enum(encodingText, encodingBase64),
		),
		mcp.WithBoolean(argList,
			mcp.Description("Return every certificate instead of only the first (default: false)"),
			mcp.DefaultBool(false),
		),
		mcp.WithString(argPassword,
			mcp.Description("PKCS#12 password; ignored for PEM input"),
		),
	)
}
