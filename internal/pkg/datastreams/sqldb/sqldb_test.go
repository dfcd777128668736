package sqldb

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestDSN(t *testing.T) {
	cfg := config{
		Server:   "db.local",
		Port:     3306,
		Username: "deye",
		Password: "secret",
		Database: "solar",
	}
	assert.Equal(t, dsn(cfg), "deye:secret@tcp(db.local:3306)/solar?parseTime=true")
}
