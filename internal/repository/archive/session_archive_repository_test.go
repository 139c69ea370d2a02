package archive

import (
	"context"
	"testing"

	"ai-lessongen-be/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMigrateWithoutDatabase(t *testing.T) {
	assert.NoError(t, Migrate(nil))
}

func TestSaveWithoutDatabase(t *testing.T) {
	repo := NewSessionArchiveRepository(nil)
	session := model.NewGenerationSession("s1", "Biology 101", "course-1", "")

	assert.NoError(t, repo.Save(context.Background(), session))

	_, err := repo.FindBySessionId(context.Background(), "s1")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
