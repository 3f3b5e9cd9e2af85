package samples

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// ImagePrompt is the default image generation prompt.
const ImagePrompt = "a happy monkey sitting in a tree, in watercolor"

// Image generates one image and prints where to find it.
func (r *Runner) Image(ctx context.Context, prompt string) error {
	if prompt == "" {
		prompt = ImagePrompt
	}
	req := openai.ImageRequest{
		Model:          r.Deployments.Image,
		Prompt:         prompt,
		Size:           openai.CreateImageSize1024x1024,
		N:              1,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	}
	resp, err := call(ctx, r, "image", func(ctx context.Context) (openai.ImageResponse, error) {
		return r.Images.CreateImage(ctx, req)
	})
	if err != nil {
		return fmt.Errorf("image generation: %w", err)
	}
	r.Render.Images(resp)
	return nil
}
