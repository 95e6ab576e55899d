package firebase

import (
	"context"
	"fmt"
	"log"
	"os"

	"cloud.google.com/go/firestore"
	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// App holds the Firebase clients shared by every component. It is created
// once at startup and closed at shutdown.
type App struct {
	FirebaseApp     *firebase.App
	AuthClient      *auth.Client
	Firestore       *firestore.Client
	Messaging       *messaging.Client
	Bucket          *gcs.BucketHandle
	StorageBucketID string
}

// InitFirebase initializes the Firebase application and the Firestore,
// messaging, storage and auth clients.
func InitFirebase(ctx context.Context, credentialsPath, projectID, bucket string) (*App, error) {
	if credentialsPath == "" {
		return nil, fmt.Errorf("Firebase credentials path not provided")
	}

	// Check if the credentials file exists
	if _, err := os.Stat(credentialsPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("Firebase credentials file not found at %s", credentialsPath)
	}

	opt := option.WithCredentialsFile(credentialsPath)

	var conf *firebase.Config
	if projectID != "" || bucket != "" {
		conf = &firebase.Config{ProjectID: projectID, StorageBucket: bucket}
	}

	firebaseApp, err := firebase.NewApp(ctx, conf, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firebase auth client: %w", err)
	}

	firestoreClient, err := firebaseApp.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firestore client: %w", err)
	}

	messagingClient, err := firebaseApp.Messaging(ctx)
	if err != nil {
		firestoreClient.Close()
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	storageClient, err := firebaseApp.Storage(ctx)
	if err != nil {
		firestoreClient.Close()
		return nil, fmt.Errorf("error getting storage client: %w", err)
	}
	bucketHandle, err := storageClient.DefaultBucket()
	if err != nil {
		firestoreClient.Close()
		return nil, fmt.Errorf("error getting default storage bucket: %w", err)
	}

	log.Println("Firebase app, firestore, messaging and storage clients initialized successfully!")
	return &App{
		FirebaseApp:     firebaseApp,
		AuthClient:      authClient,
		Firestore:       firestoreClient,
		Messaging:       messagingClient,
		Bucket:          bucketHandle,
		StorageBucketID: bucket,
	}, nil
}

// Close releases the Firestore connection.
func (a *App) Close() {
	if a.Firestore == nil {
		return
	}
	if err := a.Firestore.Close(); err != nil {
		log.Printf("Error closing Firestore client: %v\n", err)
	}
}
