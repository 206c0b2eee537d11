package yacs

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gocql/gocql"
)

var (
	ErrNotRunning     = errors.New("no stress run in progress")
	ErrAlreadyRunning = errors.New("a stress run is already in progress")
)

// Session is the layer between the engine and the target cluster. One
// instance is shared by every dispatch routine; Execute is called from
// the driver executor routines and must be safe for concurrent use.
//
// The engine makes no use of result payloads. It only observes whether
// an operation succeeded and how long it took; result rows are consumed
// and discarded (walking every page when the operation asks for it).
type Session interface {
	// Execute runs one bound operation synchronously.
	Execute(op *Operation) error

	// Apply runs a DDL statement at startup.
	Apply(cql string) error

	// Close releases the connection. Called once, after every dispatch
	// routine has joined and the collector chain has been flushed.
	Close()
}

// Map of user specified names to driver consistency settings.
var consistencyLevels = map[string]gocql.Consistency{
	"ANY":          gocql.Any,
	"ONE":          gocql.One,
	"TWO":          gocql.Two,
	"THREE":        gocql.Three,
	"QUORUM":       gocql.Quorum,
	"ALL":          gocql.All,
	"LOCAL_QUORUM": gocql.LocalQuorum,
	"EACH_QUORUM":  gocql.EachQuorum,
	"LOCAL_ONE":    gocql.LocalOne,
}

var serialConsistencyLevels = map[string]gocql.SerialConsistency{
	"SERIAL":       gocql.Serial,
	"LOCAL_SERIAL": gocql.LocalSerial,
}

// CassandraSession drives a live cluster through the gocql driver.
type CassandraSession struct {
	session           *gocql.Session
	consistency       gocql.Consistency
	serialConsistency gocql.SerialConsistency
	pageSize          int
}

// NewCassandraSession connects to the configured contact point. The
// keyspace is created on a bootstrap connection first so the working
// session can bind to it directly.
func NewCassandraSession(cfg *RunConfig) (*CassandraSession, error) {
	cluster := gocql.NewCluster(cfg.Host)
	cluster.Port = cfg.Port
	cluster.ProtoVersion = 4
	cluster.Timeout = 10 * time.Second
	cluster.Consistency = consistencyLevels[cfg.ConsistencyLevel]
	if len(cfg.Username) > 0 {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}
	if cfg.CoordinatorOnly {
		// pin every request to the contact point
		cluster.DisableInitialHostLookup = true
	}

	bootstrap, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("fail to connect to %s:%d: %s", cfg.Host, cfg.Port, err)
	}
	ksStmt := fmt.Sprintf(
		"CREATE KEYSPACE IF NOT EXISTS %s WITH replication = %s",
		cfg.Keyspace, strings.ReplaceAll(cfg.Replication, `"`, `'`))
	if err = bootstrap.Query(ksStmt).Exec(); err != nil {
		bootstrap.Close()
		return nil, fmt.Errorf("fail to create keyspace %s: %s", cfg.Keyspace, err)
	}
	bootstrap.Close()

	cluster.Keyspace = cfg.Keyspace
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("fail to bind to keyspace %s: %s", cfg.Keyspace, err)
	}
	return &CassandraSession{
		session:           session,
		consistency:       consistencyLevels[cfg.ConsistencyLevel],
		serialConsistency: serialConsistencyLevels[cfg.SerialConsistencyLevel],
		pageSize:          cfg.Paging,
	}, nil
}

func (self *CassandraSession) Execute(op *Operation) error {
	q := self.session.Query(op.CQL, op.Values...)
	defer q.Release()
	q.Consistency(self.consistency)
	q.SerialConsistency(self.serialConsistency)
	if op.Kind == OperationSelect {
		q.PageSize(self.pageSize)
		iter := q.Iter()
		if op.Paginate {
			// walk every page inside the timed window
			scanner := iter.Scanner()
			for scanner.Next() {
			}
			return scanner.Err()
		}
		return iter.Close()
	}
	return q.Exec()
}

func (self *CassandraSession) Apply(cql string) error {
	return self.session.Query(cql).Exec()
}

func (self *CassandraSession) Close() {
	self.session.Close()
}

// ErrorClass reduces a driver error to the exception family name logged
// to the raw event log.
func ErrorClass(err error) string {
	if err == nil {
		return ""
	}
	return strings.TrimPrefix(fmt.Sprintf("%T", err), "*")
}
