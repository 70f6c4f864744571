package firebase

import (
	"context"
	"fmt"
	"os"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// App holds the initialized Firebase app, its auth client and the media bucket
type App struct {
	FirebaseApp *firebase.App
	AuthClient  *auth.Client
	Bucket      *gcs.BucketHandle
}

// InitFirebase initializes the Firebase application, the authentication client
// and the storage bucket used for media.
func InitFirebase(ctx context.Context, credentialsPath, bucket string) (*App, error) {
	if credentialsPath == "" {
		return nil, fmt.Errorf("firebase credentials path not provided")
	}
	if _, err := os.Stat(credentialsPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("firebase credentials file not found at %s", credentialsPath)
	}

	opt := option.WithCredentialsFile(credentialsPath)
	firebaseApp, err := firebase.NewApp(ctx, &firebase.Config{StorageBucket: bucket}, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firebase auth client: %w", err)
	}

	storageClient, err := firebaseApp.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firebase storage client: %w", err)
	}
	handle, err := storageClient.DefaultBucket()
	if err != nil {
		return nil, fmt.Errorf("error opening storage bucket: %w", err)
	}

	return &App{FirebaseApp: firebaseApp, AuthClient: authClient, Bucket: handle}, nil
}
