package audiofilestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/nats-io/nats.go"

	"moodmusic/model"
)

// NatsAudioStore keeps audio in a NATS JetStream object store bucket.
type NatsAudioStore struct {
	bucket string
	store  nats.ObjectStore
}

// NewNatsAudioStore binds to bucketName, creating the bucket if it does not exist yet.
func NewNatsAudioStore(js nats.JetStreamContext, bucketName string) (*NatsAudioStore, error) {
	store, err := js.ObjectStore(bucketName)
	if errors.Is(err, nats.ErrStreamNotFound) || errors.Is(err, nats.ErrBucketNotFound) {
		store, err = js.CreateObjectStore(&nats.ObjectStoreConfig{
			Bucket:      bucketName,
			Description: "Generated audio tracks.",
			Storage:     nats.FileStorage,
			Replicas:    1,
		})
		if err != nil {
			// lost a creation race: bind again
			store, err = js.ObjectStore(bucketName)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: bind object store bucket '%s': %v", ErrStorage, bucketName, err)
	}

	return &NatsAudioStore{bucket: bucketName, store: store}, nil
}

// Save puts audio into the bucket as track_{uuid}.wav and returns
//
//	/static/generated/track_{uuid}.wav
func (n *NatsAudioStore) Save(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", ErrNoAudio
	}

	name := model.NewAudioFileName()

	_, err := n.store.Put(&nats.ObjectMeta{
		Name:        name,
		Description: "generated audio",
	}, bytes.NewReader(audio), nats.Context(ctx))
	if err != nil {
		return "", fmt.Errorf("%w: put object '%s' to bucket '%s': %v", ErrStorage, name, n.bucket, err)
	}

	logger.WithField("bucket", n.bucket).
		WithField("name", name).
		WithField("bytes", len(audio)).
		Debug("Save: success")

	return model.AudioFileURLRelative(name), nil
}

// Load reads the object called name.
func (n *NatsAudioStore) Load(ctx context.Context, name string) ([]byte, error) {
	if !model.IsAudioFileName(name) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	obj, err := n.store.Get(name, nats.Context(ctx))
	if errors.Is(err, nats.ErrObjectNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get object '%s' from bucket '%s': %v", ErrStorage, name, n.bucket, err)
	}

	data, readErr := io.ReadAll(obj)
	closeErr := obj.Close()

	if readErr != nil {
		return nil, fmt.Errorf("%w: read object '%s': %v", ErrStorage, name, readErr)
	}
	if closeErr != nil {
		return data, fmt.Errorf("%w: close object '%s': %v", ErrStorage, name, closeErr)
	}
	return data, nil
}
