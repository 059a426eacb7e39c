package storage

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// ErrInvalidBlobURL is returned for URLs that do not name a blob in the
// configured storage account.
var ErrInvalidBlobURL = errors.New("invalid blob URL")

// AzureBlobFetcher downloads receipt images from Azure Blob Storage
type AzureBlobFetcher struct {
	client      *azblob.Client
	accountHost string
	maxPixels   int64
}

// NewAzureBlobFetcher authenticates with a shared account key. maxPixels
// <= 0 disables the pre-decode size check.
func NewAzureBlobFetcher(accountName string, accountKey string, maxPixels int64) (*AzureBlobFetcher, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("azure credential: %w", err)
	}

	host := accountName + ".blob.core.windows.net"
	client, err := azblob.NewClientWithSharedKeyCredential("https://"+host+"/", credential, nil)
	if err != nil {
		return nil, fmt.Errorf("azure client: %w", err)
	}

	return &AzureBlobFetcher{client: client, accountHost: host, maxPixels: maxPixels}, nil
}

// FetchImage accepts https://<account>.blob.core.windows.net/<container>/<blob>
func (s *AzureBlobFetcher) FetchImage(ctx context.Context, blobURL string) (image.Image, error) {
	containerName, blobName, err := parseBlobURL(blobURL, s.accountHost)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.DownloadStream(ctx, containerName, blobName, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, fmt.Errorf("%w: %s/%s", ErrImageNotFound, containerName, blobName)
		}
		return nil, fmt.Errorf("download %s/%s: %w", containerName, blobName, err)
	}
	body := resp.Body
	defer body.Close()

	img, _, err := DecodeImage(body, s.maxPixels)
	return img, err
}

// parseBlobURL splits a blob URL into container and blob name. A "blob"
// query parameter overrides the path-derived blob name.
func parseBlobURL(blobURL, accountHost string) (string, string, error) {
	u, err := url.Parse(blobURL)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidBlobURL, err)
	}
	if accountHost != "" && !strings.EqualFold(u.Host, accountHost) {
		return "", "", fmt.Errorf("%w: host %q is not %q", ErrInvalidBlobURL, u.Host, accountHost)
	}

	containerName, blobName, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	if q := u.Query().Get("blob"); q != "" {
		blobName = q
	}
	if containerName == "" || blobName == "" {
		return "", "", fmt.Errorf("%w: %q names no container/blob", ErrInvalidBlobURL, blobURL)
	}
	return containerName, blobName, nil
}
