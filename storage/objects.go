package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

// Object store configuration via environment variables
// STORAGE_ENDPOINT, STORAGE_SERVICE_KEY, STORAGE_BUCKET (optional, defaults to "resumes")

const SignedURLTTL = 7 * 24 * time.Hour

func InitializeObjectStore() {
	if os.Getenv("STORAGE_ENDPOINT") == "" {
		log.Println("Warning: STORAGE_ENDPOINT not set, uploads will fail")
	}
}

func storageBucket() string {
	bucket := os.Getenv("STORAGE_BUCKET")
	if bucket == "" {
		bucket = "resumes"
	}
	return bucket
}

// UploadObject stores the binary under the given key. The key must be unique;
// the store rejects overwrites.
func UploadObject(key string, contentType string, data []byte) error {
	endpoint := os.Getenv("STORAGE_ENDPOINT")
	serviceKey := os.Getenv("STORAGE_SERVICE_KEY")
	if endpoint == "" || serviceKey == "" {
		return errors.New("object store is not configured")
	}

	req, err := http.NewRequest("POST", endpoint+"/object/"+storageBucket()+"/"+key, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+serviceKey)
	req.Header.Set("Content-Type", contentType)

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return readStoreError(res)
	}
	return nil
}

// CreateSignedURL asks the store for a time-limited retrieval link.
func CreateSignedURL(key string, ttl time.Duration) (string, error) {
	endpoint := os.Getenv("STORAGE_ENDPOINT")
	serviceKey := os.Getenv("STORAGE_SERVICE_KEY")
	if endpoint == "" || serviceKey == "" {
		return "", errors.New("object store is not configured")
	}

	payload, _ := json.Marshal(map[string]int64{"expiresIn": int64(ttl.Seconds())})
	req, err := http.NewRequest("POST", endpoint+"/object/sign/"+storageBucket()+"/"+key, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+serviceKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", readStoreError(res)
	}

	var signRes struct {
		SignedURL string `json:"signedURL"`
	}
	if err := json.NewDecoder(res.Body).Decode(&signRes); err != nil {
		return "", err
	}
	if signRes.SignedURL == "" {
		return "", errors.New("store returned no signed URL")
	}
	return endpoint + signRes.SignedURL, nil
}

// DeleteObject removes a stored binary. Used to compensate a failed row
// insert after a successful upload.
func DeleteObject(key string) error {
	endpoint := os.Getenv("STORAGE_ENDPOINT")
	serviceKey := os.Getenv("STORAGE_SERVICE_KEY")
	if endpoint == "" || serviceKey == "" {
		return errors.New("object store is not configured")
	}

	req, err := http.NewRequest("DELETE", endpoint+"/object/"+storageBucket()+"/"+key, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+serviceKey)

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return readStoreError(res)
	}
	return nil
}

func readStoreError(res *http.Response) error {
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("store returned status %d", res.StatusCode)
	}

	var storeRes struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &storeRes); err == nil {
		if storeRes.Message != "" {
			return errors.New(storeRes.Message)
		}
		if storeRes.Error != "" {
			return errors.New(storeRes.Error)
		}
	}
	return fmt.Errorf("store returned status %d: %s", res.StatusCode, string(body))
}
