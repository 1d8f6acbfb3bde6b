package storage

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"io/ioutil"
	"net/url"

	"github.com/Azure/azure-storage-blob-go/azblob"
	"github.com/golang/snappy"
	"github.com/liveevilll/massa/blockgraph"
)

// AzureBlob is the remote archival backend spec §6 allows as an
// alternative to local leveldb storage: every block is its own block
// blob, named by hex block id, compressed the same way LevelDB
// compresses its values.
type AzureBlob struct {
	container azblob.ContainerURL
}

// OpenAzureBlob builds a backend against an existing container. accountName
// and accountKey authenticate via shared-key signing, the same credential
// shape azblob.NewSharedKeyCredential expects.
func OpenAzureBlob(accountName, accountKey, containerName string) (*AzureBlob, error) {
	cred, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, err
	}
	pipeline := azblob.NewPipeline(cred, azblob.PipelineOptions{})
	u, err := url.Parse(fmt.Sprintf("https://%s.blob.core.windows.net/%s", accountName, containerName))
	if err != nil {
		return nil, err
	}
	return &AzureBlob{container: azblob.NewContainerURL(*u, pipeline)}, nil
}

func (a *AzureBlob) blockName(id blockgraph.BlockID) string {
	return id.String()
}

func (a *AzureBlob) GetBlock(id blockgraph.BlockID) (*blockgraph.Block, bool, error) {
	ctx := context.Background()
	blobURL := a.container.NewBlockBlobURL(a.blockName(id))

	resp, err := blobURL.Download(ctx, 0, azblob.CountToEnd, azblob.BlobAccessConditions{}, false)
	if err != nil {
		if stgErr, ok := err.(azblob.StorageError); ok && stgErr.ServiceCode() == azblob.ServiceCodeBlobNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	body := resp.Body(azblob.RetryReaderOptions{})
	defer body.Close()

	raw, err := ioutil.ReadAll(body)
	if err != nil {
		return nil, false, err
	}
	plain, err := snappy.Decode(nil, raw)
	if err != nil {
		return nil, false, err
	}
	var e encodedBlock
	if err := gob.NewDecoder(bytes.NewReader(plain)).Decode(&e); err != nil {
		return nil, false, err
	}
	return fromEncoded(e), true, nil
}

func (a *AzureBlob) AddBlockBatch(blocks []*blockgraph.Block) error {
	ctx := context.Background()
	for _, b := range blocks {
		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(toEncoded(b)); err != nil {
			return err
		}
		compressed := snappy.Encode(nil, buf.Bytes())

		blobURL := a.container.NewBlockBlobURL(a.blockName(b.ID()))
		if _, err := blobURL.Upload(ctx, bytes.NewReader(compressed), azblob.BlobHTTPHeaders{},
			azblob.Metadata{}, azblob.BlobAccessConditions{}, azblob.DefaultAccessTier,
			nil, azblob.ClientProvidedKeyOptions{}); err != nil {
			return err
		}
	}
	log.Debug("uploaded block batch to blob storage", "count", len(blocks))
	return nil
}

// Close is a no-op: the azblob pipeline has no persistent handle to
// release, unlike LevelDB's on-disk file lock.
func (a *AzureBlob) Close() error { return nil }
