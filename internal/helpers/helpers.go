package helpers

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

const (
	BarFolder    = "bars"
	AvatarFolder = "avatars"
)

func StringTrim(s string) string {
	return strings.TrimSpace(s)
}

// UploadImages pushes local files or remote URLs to Cloudinary and returns
// the secure URLs in submission order. Empty entries are skipped.
func UploadImages(ctx context.Context, cld *cloudinary.Cloudinary, imageNames []string, imagePath string) ([]string, error) {
	var urls []string

	for _, filePath := range imageNames {
		if strings.TrimSpace(filePath) == "" {
			continue
		}
		uploadResult, err := cld.Upload.Upload(ctx, filePath, uploader.UploadParams{
			Folder: imagePath,
			Tags:   []string{"calibar"},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to upload image %s: %w", filePath, err)
		}
		urls = append(urls, uploadResult.SecureURL)
	}

	return urls, nil
}
