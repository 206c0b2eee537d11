package yacs

import (
	"fmt"
	"strings"
)

// TableOptions renders the WITH clauses appended to every CREATE TABLE
// statement a profile declares: compaction, compression and TTL.
func TableOptions(cfg *RunConfig) ([]string, error) {
	var clauses []string
	if len(cfg.Compaction) > 0 {
		compaction, err := ParseCompaction(cfg.Compaction)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, "compaction = "+compaction)
	}
	if len(cfg.Compression) > 0 {
		clauses = append(clauses,
			"compression = "+strings.ReplaceAll(cfg.Compression, `"`, `'`))
	}
	if cfg.TTL > 0 {
		clauses = append(clauses, fmt.Sprintf("default_time_to_live = %d", cfg.TTL))
	}
	return clauses, nil
}

// AppendTableOptions attaches WITH clauses to a CREATE TABLE statement,
// folding into an existing WITH clause when the profile already has one.
func AppendTableOptions(ddl string, clauses []string) string {
	if len(clauses) == 0 {
		return ddl
	}
	joined := strings.Join(clauses, " AND ")
	if strings.Contains(ddl, " WITH ") {
		return ddl + " AND " + joined
	}
	return ddl + " WITH " + joined
}

// ApplySchema runs the profile's DDL against the session.
func ApplySchema(session Session, cfg *RunConfig, workload IStressWorkload) error {
	clauses, err := TableOptions(cfg)
	if err != nil {
		return err
	}
	for _, ddl := range workload.Schema() {
		stmt := ddl
		if strings.HasPrefix(stmt, "CREATE TABLE") {
			stmt = AppendTableOptions(stmt, clauses)
		}
		Debugf("applying schema: %s", stmt)
		if err := session.Apply(stmt); err != nil {
			return fmt.Errorf("fail to apply schema %q: %s", stmt, err)
		}
	}
	return nil
}
