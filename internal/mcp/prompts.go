package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("landing_page",
		mcp.WithPromptDescription("Guide through building a product landing page on the active page"),
		mcp.WithArgument("product",
			mcp.ArgumentDescription("Product the page sells"),
			mcp.RequiredArgument(),
		),
	), s.handleLandingPagePrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("media_gallery",
		mcp.WithPromptDescription("Lay out every media dock asset as a gallery"),
		mcp.WithArgument("title",
			mcp.ArgumentDescription("Gallery heading"),
			mcp.RequiredArgument(),
		),
	), s.handleMediaGalleryPrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("ship_page",
		mcp.WithPromptDescription("Review, deploy and check out the active page"),
		mcp.WithArgument("productId",
			mcp.ArgumentDescription("Product to license at checkout"),
			mcp.RequiredArgument(),
		),
	), s.handleShipPagePrompt)
}

func promptResult(description, text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.TextContent{Type: "text", Text: text},
			},
		},
	}
}

func (s *Server) handleLandingPagePrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	product := req.Params.Arguments["product"]
	return promptResult(
		fmt.Sprintf("Build a landing page for: %s", product),
		fmt.Sprintf(`Build a landing page for "%s" on the active page. Follow these steps:

1. Call list_templates and place a hero section with create_from_template (autoLayout true)
2. Use update_element to set the hero text to a headline about %s
3. Add a features section and a call-to-action button from the templates
4. Give the button a strong background colour with update_element
5. Finish with arrange_elements so nothing overlaps, then render_page to review the markup

Keep the palette consistent and the copy short.`, product, product),
	), nil
}

func (s *Server) handleMediaGalleryPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	title := req.Params.Arguments["title"]
	return promptResult(
		fmt.Sprintf("Create a media gallery: %s", title),
		fmt.Sprintf(`Create a gallery titled "%s". Follow these steps:

1. Create a text element with the title using create_element (kind text, autoLayout true)
2. Call list_media and spawn_media each asset with autoLayout true
3. Resize images with resize_element so they share one height
4. Run arrange_elements starting below the title`, title),
	), nil
}

func (s *Server) handleShipPagePrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	productID := req.Params.Arguments["productId"]
	return promptResult(
		"Deploy the active page",
		fmt.Sprintf(`Ship the active page. Follow these steps:

1. Call render_page and check that every element has content
2. Call save_page so the state is in history
3. Call deploy
4. Call checkout with productId "%s" and report the returned URL`, productID),
	), nil
}
