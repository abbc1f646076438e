package connect

import (
	"fmt"
	"os"

	"github.com/cloudinary/cloudinary-go/v2"
)

var Cld *cloudinary.Cloudinary

// CloudinaryCredentials builds a Cloudinary client from the environment.
// Returns (nil, nil) when no credentials are configured; image uploads are
// then skipped and submitted URLs stored as-is.
func CloudinaryCredentials() (*cloudinary.Cloudinary, error) {
	cloudinaryName := os.Getenv("CLOUDINARY_CLOUD_NAME")
	apiKey := os.Getenv("CLOUDINARY_API_KEY")
	apiSecret := os.Getenv("CLOUDINARY_API_SECRET")

	if cloudinaryName == "" && apiKey == "" && apiSecret == "" {
		return nil, nil
	}

	cld, err := cloudinary.NewFromParams(cloudinaryName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}

	Cld = cld
	return cld, nil
}
