package setup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDBConfig_DSN(t *testing.T) {
	cfg := DBConfig{User: "mocamp", Password: "pw", Host: "db", Port: "3306", Name: "mocamp"}
	assert.Equal(t, "mocamp:pw@tcp(db:3306)/mocamp?charset=utf8mb4&parseTime=True&loc=Local", cfg.DSN())
}

func TestInitDB_RequiresUser(t *testing.T) {
	_, err := InitDB(DBConfig{Host: "db"})
	require.Error(t, err)
}

func TestMigrateDB_NilConnection(t *testing.T) {
	require.Error(t, MigrateDB(nil))
}
