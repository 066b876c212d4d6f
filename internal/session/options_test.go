package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, DefaultOptions().Validate())
	assert.Error(t, Options{}.Validate())
	assert.Error(t, Options{MaxConcurrentDownloads: 1, MaxOverallDownloadLimit: -1}.Validate())
	assert.Error(t, Options{MaxConcurrentDownloads: 1, MaxOverallUploadLimit: -1}.Validate())
	assert.NoError(t, Options{MaxConcurrentDownloads: 1}.Validate())
}
