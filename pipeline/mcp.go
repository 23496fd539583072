package pipeline

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/ocrpipe/idgen"
	"github.com/hazyhaar/ocrpipe/kit"
	"github.com/hazyhaar/ocrpipe/validate"
)

// RegisterMCP registers the pipeline's tools on an MCP server.
func (p *Pipeline) RegisterMCP(srv *mcp.Server) {
	p.registerExtractTool(srv)
	p.registerDetectTool(srv)
	p.registerFormatsTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// uploadReq is the shared argument shape for tools that take a document.
type uploadReq struct {
	DataBase64  string `json:"data_base64"`
	ContentType string `json:"content_type"`
	Filename    string `json:"filename"`
}

func (r *uploadReq) upload() (*validate.Upload, error) {
	data, err := base64.StdEncoding.DecodeString(r.DataBase64)
	if err != nil {
		return nil, err
	}
	return &validate.Upload{Data: data, ContentType: r.ContentType, Filename: r.Filename}, nil
}

func uploadProperties() map[string]any {
	return map[string]any{
		"data_base64":  map[string]any{"type": "string", "description": "Base64-encoded file content"},
		"content_type": map[string]any{"type": "string", "description": "Declared media type (image/jpeg, image/png, image/webp, application/pdf)"},
		"filename":     map[string]any{"type": "string", "description": "Original filename, informational only"},
	}
}

func decodeUpload(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	var r uploadReq
	if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
		return nil, err
	}
	return &kit.MCPDecodeResult{
		Request: &r,
		EnrichCtx: func(ctx context.Context) context.Context {
			return kit.WithRequestID(ctx, idgen.New())
		},
	}, nil
}

// --- extract ---

func (p *Pipeline) registerExtractTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "ocr_extract_text",
		Description: "Extract text from an image (JPEG, PNG, WEBP) or PDF document.",
		InputSchema: inputSchema(uploadProperties(), []string{"data_base64", "content_type"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		u, err := req.(*uploadReq).upload()
		if err != nil {
			return nil, err
		}
		res, err := p.ExtractText(ctx, u)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"extracted_text":   res.Text,
			"confidence_score": res.Confidence,
			"pages":            res.Pages,
			"partial":          res.Partial,
			"source":           res.Source,
		}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeUpload)
}

// --- detect ---

func (p *Pipeline) registerDetectTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "ocr_detect_language",
		Description: "Detect the languages present in an image or PDF document.",
		InputSchema: inputSchema(uploadProperties(), []string{"data_base64", "content_type"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		u, err := req.(*uploadReq).upload()
		if err != nil {
			return nil, err
		}
		res, err := p.DetectLanguage(ctx, u)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"detected_languages": res.Candidates,
			"primary_language":   res.Primary.Language,
		}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeUpload)
}

// --- formats ---

func (p *Pipeline) registerFormatsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "ocr_formats",
		Description: "List the media types accepted for text extraction.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		return map[string]any{"media_types": validate.AcceptedTypes()}, nil
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
