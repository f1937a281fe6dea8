package validation

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/quillhub/backend/internal/logger"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	_ = logger.Initialize("error", "")
	os.Exit(m.Run())
}

func TestValidateServices(t *testing.T) {
	ctx := context.Background()

	t.Run("nothing required", func(t *testing.T) {
		sv := NewServiceValidator(nil)
		sv.Register(ServiceRedis, func(context.Context) error { return ErrNotConfigured })
		assert.NoError(t, sv.ValidateServices(ctx))
	})

	t.Run("required service failing", func(t *testing.T) {
		sv := NewServiceValidator([]string{" Redis "})
		sv.Register(ServiceRedis, func(context.Context) error { return ErrNotConfigured })
		err := sv.ValidateServices(ctx)
		assert.ErrorIs(t, err, ErrNotConfigured)
		assert.Contains(t, err.Error(), "redis")
	})

	t.Run("only required checks run", func(t *testing.T) {
		ran := map[string]bool{}
		sv := NewServiceValidator([]string{ServiceElasticsearch})
		sv.Register(ServiceRedis, func(context.Context) error { ran[ServiceRedis] = true; return errors.New("down") })
		sv.Register(ServiceElasticsearch, func(context.Context) error { ran[ServiceElasticsearch] = true; return nil })
		assert.NoError(t, sv.ValidateServices(ctx))
		assert.Equal(t, map[string]bool{ServiceElasticsearch: true}, ran)
	})

	t.Run("unknown service", func(t *testing.T) {
		sv := NewServiceValidator([]string{"gorse"})
		assert.Error(t, sv.ValidateServices(ctx))
	})
}
