package storage

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shaibs3/holovote/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func memoryConfig(t *testing.T) string {
	t.Helper()
	config := DbProviderConfig{
		DbType:       DbTypeMemory,
		ExtraDetails: map[string]interface{}{},
	}
	configJSON, err := json.Marshal(config)
	require.NoError(t, err)
	return string(configJSON)
}

func TestDbProviderFactory_CreateProvider_Memory(t *testing.T) {
	factory := NewDbProviderFactory(zap.NewNop(), nil)

	db, err := factory.CreateProvider(memoryConfig(t))
	require.NoError(t, err)
	require.NotNil(t, db)

	for _, table := range []string{"characters", "films", "starships", "character_film", "character_starship"} {
		assert.True(t, db.Migrator().HasTable(table), "expected table %s", table)
	}
}

func TestDbProviderFactory_MemoryStoresAreIsolated(t *testing.T) {
	factory := NewDbProviderFactory(zap.NewNop(), nil)

	first, err := factory.CreateProvider(memoryConfig(t))
	require.NoError(t, err)
	second, err := factory.CreateProvider(memoryConfig(t))
	require.NoError(t, err)

	require.NoError(t, first.Create(&models.Film{Title: "A New Hope", SwapiID: 1, URL: "https://swapi.info/api/films/1"}).Error)

	var n int64
	require.NoError(t, second.Model(&models.Film{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestDbProviderFactory_CreateProvider_Errors(t *testing.T) {
	factory := NewDbProviderFactory(zap.NewNop(), nil)

	tests := []struct {
		name   string
		config string
	}{
		{"invalid json", `{not json`},
		{"unknown type", `{"db_type": "csv", "extra_details": {}}`},
		{"postgres without conn_str", `{"db_type": "postgres", "extra_details": {}}`},
		{"sqlite without path", `{"db_type": "sqlite", "extra_details": {}}`},
		{"mysql without host", `{"db_type": "mysql", "extra_details": {}}`},
		{"mysql without dbname", `{"db_type": "mysql", "extra_details": {"host": "localhost"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := factory.CreateProvider(tt.config)
			require.Error(t, err)
		})
	}
}

func TestMySQLDSN(t *testing.T) {
	dsn, err := mysqlDSN(DbProviderConfig{
		DbType: DbTypeMySQL,
		ExtraDetails: map[string]interface{}{
			"host":     "db",
			"user":     "swapi",
			"password": "secret",
			"dbname":   "holovote",
		},
	})
	require.NoError(t, err)
	assert.Contains(t, dsn, "swapi:secret@tcp(db:3306)/holovote")

	dsn, err = mysqlDSN(DbProviderConfig{ExtraDetails: map[string]interface{}{"dsn": "u:p@/x"}})
	require.NoError(t, err)
	assert.Equal(t, "u:p@/x", dsn)
}

func TestIsUniqueViolation(t *testing.T) {
	db, err := NewDbProviderFactory(zap.NewNop(), nil).CreateProvider(memoryConfig(t))
	require.NoError(t, err)

	first := &models.Character{Name: "Luke Skywalker", SwapiID: 1, URL: "https://swapi.info/api/people/1"}
	require.NoError(t, db.Create(first).Error)

	dup := &models.Character{Name: "Luke again", SwapiID: 1, URL: "https://swapi.info/api/people/1/"}
	err = db.Create(dup).Error
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))

	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(errors.New("connection reset")))
	assert.False(t, IsUniqueViolation(gorm.ErrRecordNotFound))
}

func TestDbType_IsValid(t *testing.T) {
	for _, dt := range []DbType{DbTypePostgres, DbTypeMySQL, DbTypeSQLite, DbTypeMemory} {
		assert.True(t, dt.IsValid(), dt.String())
	}
	assert.False(t, DbType("csv").IsValid())
}
