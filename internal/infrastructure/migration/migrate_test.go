package migration

import (
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"savesync/internal/app/server/config"
)

// MockMigrator - мок для интерфейса Migrator
type MockMigrator struct {
	mock.Mock
}

func (m *MockMigrator) Up() error {
	return m.Called().Error(0)
}

func (m *MockMigrator) Down() error {
	return m.Called().Error(0)
}

func (m *MockMigrator) Close() (error, error) {
	args := m.Called()
	return args.Error(0), args.Error(1)
}

var testDB = config.DB{DatabaseURI: "postgres://localhost/saves", Migrations: "migrations"}

func engineFor(m Migrator, gotSource *string) MigrationEngine {
	return func(source, db string) (Migrator, error) {
		if gotSource != nil {
			*gotSource = source
		}
		return m, nil
	}
}

func TestMigration_Up(t *testing.T) {
	tests := []struct {
		name    string
		upErr   error
		wantErr bool
	}{
		{name: "applied", upErr: nil},
		{name: "no change", upErr: migrate.ErrNoChange},
		{name: "failure", upErr: errors.New("dirty database"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockM := new(MockMigrator)
			mockM.On("Up").Return(tt.upErr)
			mockM.On("Close").Return(nil, nil)

			var source string
			err := NewMigration(testDB, engineFor(mockM, &source)).Up()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "dirty database")
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, "file://migrations", source)
			mockM.AssertExpectations(t)
		})
	}
}

func TestMigration_CloseErrors(t *testing.T) {
	mockM := new(MockMigrator)
	mockM.On("Down").Return(nil)
	mockM.On("Close").Return(errors.New("source closed"), errors.New("db closed"))

	err := NewMigration(testDB, engineFor(mockM, nil)).Down()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source closed")
	assert.Contains(t, err.Error(), "db closed")
}

func TestMigration_EngineError(t *testing.T) {
	engine := func(source, db string) (Migrator, error) {
		return nil, errors.New("engine crash")
	}

	err := NewMigration(testDB, engine).Up()
	require.Error(t, err)
	assert.Equal(t, "engine crash", err.Error())
}
