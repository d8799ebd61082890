package main

import (
	"compress/bzip2"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/MrCodeEU/facewatch/pkg/logging"
	"github.com/MrCodeEU/facewatch/pkg/recognition"
)

const modelBaseURL = "http://dlib.net/files/"

func cmdDownloadModels(args []string) error {
	modelDir := cfg.Recognition.ModelPath
	if len(args) > 0 {
		modelDir = args[0]
	}

	logging.Infof("Downloading models to: %s", modelDir)

	if err := os.MkdirAll(modelDir, 0755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	for _, name := range recognition.ModelFiles {
		targetPath := filepath.Join(modelDir, name)
		if _, err := os.Stat(targetPath); err == nil {
			logging.Infof("Model %s already exists, skipping", name)
			continue
		}

		logging.Infof("Downloading %s...", name)
		if err := downloadAndExtract(modelBaseURL+name+".bz2", targetPath); err != nil {
			return fmt.Errorf("failed to download %s: %w", name, err)
		}
		logging.Infof("Successfully downloaded %s", name)
	}

	logging.Info("All models downloaded successfully!")
	return nil
}

func downloadAndExtract(url, targetPath string) error {
	client := &http.Client{
		Timeout: 10 * time.Minute,
	}

	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	out, err := os.Create(targetPath)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	_, err = io.Copy(out, bzip2.NewReader(resp.Body))
	return err
}
