package badger

import (
	"fmt"

	"github.com/dgraph-io/badger/v2"
	"github.com/go-faster/errors"
)

var versionKey = []byte("kv:version")

// MigrateLatest brings the database to dbVersion. id names the database in
// errors, usually its directory.
func MigrateLatest(db *badger.DB, id string) error {
	m := Migration{
		Steps:         migrations[:],
		LatestVersion: dbVersion,
		DatabaseID:    id,
	}
	return m.Migrate(db)
}

// MigrationStep upgrades the database by one version inside the migration
// transaction, and must store the version it upgraded to.
type MigrationStep func(txn *badger.Txn) error

// Migration is a sequence of steps where Steps[i] upgrades from version
// StartVersion+i.
type Migration struct {
	StartVersion  int
	LatestVersion int
	Steps         []MigrationStep
	DatabaseID    string
}

// Migrate runs every step needed to reach LatestVersion in one transaction,
// so a failed step leaves the database untouched.
func (m *Migration) Migrate(db *badger.DB) error {
	return db.Update(m.migrate)
}

func (m *Migration) migrate(txn *badger.Txn) error {
	v, err := getVersion(txn)
	switch {
	case err != nil:
		return m.error(err, v)
	case v > m.LatestVersion:
		return m.error(errors.New("database is newer than the supported version"), v)
	case v < m.StartVersion:
		return m.error(errors.New("database version too old, migration is not supported"), v)
	}

	for v < m.LatestVersion {
		logger.Infof("Migrating database %q from version %d", m.DatabaseID, v)
		if err := m.Steps[v-m.StartVersion](txn); err != nil {
			return m.error(err, v)
		}
		next, err := getVersion(txn)
		if err != nil {
			return m.error(err, v)
		}
		if next <= v {
			return m.error(errors.Errorf("step did not increment version past %d", v), v)
		}
		v = next
	}
	return nil
}

func (m *Migration) error(cause error, version int) MigrationError {
	return MigrationError{
		OldVersion: version,
		NewVersion: m.LatestVersion,
		Path:       m.DatabaseID,
		Cause:      cause,
	}
}

func checkVersion(txn *badger.Txn, want int) error {
	version, err := getVersion(txn)
	if err != nil {
		return err
	}
	if version != want {
		return errors.Errorf("wrong version for migration: %d", version)
	}
	return nil
}

// getVersion returns 0 for databases that were never versioned.
func getVersion(txn *badger.Txn) (int, error) {
	var version int
	if err := getItem(txn, versionKey, &version); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return version, err
	}
	return version, nil
}

func setVersion(txn *badger.Txn, version int) error {
	return setItem(txn, versionKey, &version)
}

// MigrationError is returned by Open when the database can't be brought to
// the supported version.
type MigrationError struct {
	OldVersion int
	NewVersion int
	Path       string
	Cause      error
}

func (err MigrationError) Error() string {
	return fmt.Sprintf("badger migration of %q from version %d to %d failed: %s", err.Path, err.OldVersion, err.NewVersion, err.Cause)
}

func (err MigrationError) Unwrap() error {
	return err.Cause
}
