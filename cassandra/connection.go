// Package cassandra contains a graphkv.Store backed by a Cassandra table of (key text, value blob) rows.
package cassandra

import (
	"fmt"
	log "log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/gocql/gocql"

	"github.com/sharedcode/graphkv"
)

// DefaultKeyspace and DefaultTable are used when Config leaves them empty.
const (
	DefaultKeyspace = "graphkv"
	DefaultTable    = "graph_kv"
)

// Config contains configuration for connecting to a Cassandra cluster and the key/value table.
type Config struct {
	// ClusterHosts lists contact points for the Cassandra cluster.
	ClusterHosts []string
	// Keyspace is the keyspace holding the key/value table.
	Keyspace string
	// Table is the key/value table name.
	Table string
	// Consistency is the default consistency level for queries.
	Consistency gocql.Consistency
	// ConnectionTimeout is the session connection timeout.
	ConnectionTimeout time.Duration
	// Authenticator is used when the cluster requires authentication.
	Authenticator gocql.Authenticator
	// ReplicationClause defines the keyspace replication (e.g., SimpleStrategy).
	ReplicationClause string

	// ConsistencyBook allows overriding per-API consistency levels.
	ConsistencyBook ConsistencyBook
}

// ConsistencyBook enumerates per-API consistency levels used by this package.
// gocql.Any (zero value) means use Config.Consistency.
type ConsistencyBook struct {
	Get gocql.Consistency
	Set gocql.Consistency
}

// Connection wraps a Cassandra session and its configuration.
type Connection struct {
	Session *gocql.Session
	Config
}

var identifier = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// ConfigFromOptions converts the cassandra section of graphkv.Options.
func ConfigFromOptions(c *graphkv.CassandraConfig) Config {
	if c == nil {
		return Config{}.withDefaults()
	}
	cfg := Config{
		ClusterHosts: c.ClusterHosts,
		Keyspace:     c.Keyspace,
		Table:        c.Table,
	}
	if c.Username != "" {
		cfg.Authenticator = gocql.PasswordAuthenticator{
			Username: c.Username,
			Password: c.Password,
		}
	}
	return cfg.withDefaults()
}

func (config Config) withDefaults() Config {
	if len(config.ClusterHosts) == 0 {
		config.ClusterHosts = []string{"localhost"}
	}
	if config.Keyspace == "" {
		config.Keyspace = DefaultKeyspace
	}
	if config.Table == "" {
		config.Table = DefaultTable
	}
	if config.Consistency == gocql.Any {
		// Defaults to LocalQuorum consistency. You should set it to an appropriate level.
		config.Consistency = gocql.LocalQuorum
	}
	if config.ReplicationClause == "" {
		// Specify an appropriate replication feature.
		config.ReplicationClause = "{'class':'SimpleStrategy', 'replication_factor':1}"
	}
	return config
}

func (config Config) validate() error {
	if !identifier.MatchString(config.Keyspace) {
		return fmt.Errorf("invalid keyspace name %q", config.Keyspace)
	}
	if !identifier.MatchString(config.Table) {
		return fmt.Errorf("invalid table name %q", config.Table)
	}
	return nil
}

func (config Config) tableName() string {
	return config.Keyspace + "." + config.Table
}

var connection *Connection
var mux sync.Mutex

// IsConnectionInstantiated reports whether a global Connection has been created.
func IsConnectionInstantiated() bool {
	return connection != nil
}

// OpenConnection returns the existing global Connection or opens a new one using the provided config.
// The keyspace and the key/value table are created if missing.
func OpenConnection(config Config) (*Connection, error) {
	if connection != nil {
		return connection, nil
	}
	mux.Lock()
	defer mux.Unlock()

	if connection != nil {
		return connection, nil
	}
	config = config.withDefaults()
	if err := config.validate(); err != nil {
		return nil, err
	}
	cluster := gocql.NewCluster(config.ClusterHosts...)
	cluster.Consistency = config.Consistency
	if config.ConnectionTimeout > 0 {
		cluster.ConnectTimeout = config.ConnectionTimeout
	}
	if config.Authenticator != nil {
		cluster.Authenticator = config.Authenticator
		config.Authenticator = nil
	}
	s, err := cluster.CreateSession()
	if err != nil {
		return nil, err
	}
	if err := s.Query(fmt.Sprintf("CREATE KEYSPACE IF NOT EXISTS %s WITH REPLICATION = %s;", config.Keyspace, config.ReplicationClause)).Exec(); err != nil {
		s.Close()
		return nil, err
	}
	if err := s.Query(fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (key text PRIMARY KEY, value blob);", config.tableName())).Exec(); err != nil {
		s.Close()
		return nil, err
	}
	log.Debug("opened cassandra connection", "hosts", config.ClusterHosts, "table", config.tableName())

	connection = &Connection{
		Session: s,
		Config:  config,
	}
	return connection, nil
}

// CloseConnection closes and clears the global connection, if it exists.
func CloseConnection() {
	if connection != nil {
		mux.Lock()
		defer mux.Unlock()
		if connection == nil {
			return
		}
		connection.Session.Close()
		connection = nil
	}
}
