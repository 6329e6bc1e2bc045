package storage

// DbType selects the relational engine behind the store
type DbType string

const (
	DbTypePostgres DbType = "postgres"
	DbTypeMySQL    DbType = "mysql"
	DbTypeSQLite   DbType = "sqlite"
	DbTypeMemory   DbType = "memory"
	// Add more database types here as you implement them
)

func (t DbType) String() string {
	return string(t)
}

func (t DbType) IsValid() bool {
	switch t {
	case DbTypePostgres, DbTypeMySQL, DbTypeSQLite, DbTypeMemory:
		return true
	}
	return false
}

// DbProviderConfig is the JSON document describing which engine to open
type DbProviderConfig struct {
	DbType       DbType                 `json:"db_type"`
	ExtraDetails map[string]interface{} `json:"extra_details"`
}

func (c DbProviderConfig) detail(key string) (string, bool) {
	v, ok := c.ExtraDetails[key].(string)
	return v, ok && v != ""
}
