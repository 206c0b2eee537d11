package yacs

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	g "github.com/hhkbp2/yacs/generator"
)

var (
	ProgramName = filepath.Base(os.Args[0])

	// short aliases mapped onto canonical long option names
	shortOptions = map[string]string{
		"h": "host",
		"U": "username",
		"P": "password",
		"d": "duration",
		"i": "iterations",
		"t": "threads",
		"r": "rate",
		"p": "partitions",
	}
)

func Usage() {
	usageFormat := `%s: workload centric stress for wide-column clusters

usage: %s command [options]

Commands:
  run <workload>     Drive the selected workload against a cluster
  info <workload>    Show a workload's schema and tunable parameters
  list               List the available workloads
  fields             List the available field value generators
  server [-p port]   Serve the remote control commands

Options for run:
  -h/--host ip             : contact point (default %s)
  --cql-port port          : native protocol port (default %d)
  -U/--username user       : authentication username
  -P/--password pass       : authentication password
  -d/--duration span       : run bound by wall clock, e.g. "1h30m", "1d 2h"
  -i/--iterations count    : run bound by operation count, accepts k/m/b suffixes
  -t/--threads n           : dispatch routines (default %d)
  -r/--rate ops            : ops/second cap, 0 is uncapped (default %d)
  -p/--partitions n        : partition key space size (default %d)
  --partitiongenerator g   : key distribution: random, sequence, normal
  --read-rate f            : read fraction in [0, 1], profile default if unset
  --delete-rate f          : delete fraction in [0, 1]
  --queue-depth n          : per-routine in-flight cap (default %d)
  --populate v             : "standard", "none" or a row count
  --field t.c=fn(args)     : field generator override
  --workload.name=value    : dynamic workload parameter
  --cl level               : consistency level (default %s)
  --serial-cl level        : serial consistency level (default %s)
  --max-read-latency ms    : read latency ceiling, breach stops the run
  --max-write-latency ms   : write latency ceiling, breach stops the run
  --paging n               : select page size (default %d)
  --paginate               : walk every result page of a select
  --coordinator-only       : pin all requests to the contact point
  --ttl s                  : table default TTL
  --compaction s           : compaction map or shortcut (stcs|lcs|twcs|ucs,args)
  --compression s          : compression map
  --replication s          : keyspace replication map
  --keyspace name          : keyspace (default %s)
  --rawlog path            : write a parquet row per completed operation
  --prometheus-port n      : expose /metrics, 0 disables
  --status-interval s      : seconds between status lines (default %d)
  --log-level name         : verbose, debug, info, warn, error, quiet`
	Printf(usageFormat, ProgramName, ProgramName,
		OptionHostDefault, OptionPortDefault, OptionThreadsDefault,
		OptionRateDefault, OptionPartitionsDefault, OptionQueueDepthDefault,
		OptionConsistencyLevelDefault, OptionSerialConsistencyLevelDefault,
		OptionPagingDefault, OptionKeyspaceDefault, OptionStatusIntervalDefault)
}

func ExitOnError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	fmt.Fprintln(os.Stderr)
	os.Exit(1)
}

func Main() {
	if len(os.Args) < 2 {
		Usage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "-h", "--help", "help":
		Usage()
	case "run":
		runCommand(os.Args[2:])
	case "info":
		infoCommand(os.Args[2:])
	case "list":
		listCommand()
	case "fields":
		fieldsCommand()
	case "server":
		serverCommand(os.Args[2:])
	default:
		ExitOnError("unsupported command: %s", os.Args[1])
	}
}

// argCursor walks the option tokens, handling both "--name value" and
// "--name=value" spellings. Short aliases are rewritten onto their
// canonical long names when a mapping is installed.
type argCursor struct {
	args   []string
	shorts map[string]string
	index  int
	name   string
	inline string
	has    bool
}

func (self *argCursor) next() bool {
	if self.index >= len(self.args) {
		return false
	}
	arg := self.args[self.index]
	self.index++
	for _, prefix := range []string{"--", "-"} {
		if strings.HasPrefix(arg, prefix) {
			arg = strings.TrimPrefix(arg, prefix)
			break
		}
	}
	if eq := strings.Index(arg, "="); eq >= 0 {
		self.name, self.inline, self.has = arg[:eq], arg[eq+1:], true
	} else {
		self.name, self.inline, self.has = arg, "", false
	}
	if long, ok := self.shorts[self.name]; ok {
		self.name = long
	}
	return true
}

func (self *argCursor) value() string {
	if self.has {
		return self.inline
	}
	if self.index >= len(self.args) {
		ExitOnError("missing argument for option: %s", self.name)
	}
	v := self.args[self.index]
	self.index++
	return v
}

func (self *argCursor) intValue() int {
	v, err := strconv.Atoi(self.value())
	if err != nil {
		ExitOnError("option %s expects an integer: %s", self.name, err)
	}
	return v
}

func (self *argCursor) int64Value() int64 {
	v, err := strconv.ParseInt(self.value(), 0, 64)
	if err != nil {
		ExitOnError("option %s expects an integer: %s", self.name, err)
	}
	return v
}

func (self *argCursor) floatValue() float64 {
	v, err := strconv.ParseFloat(self.value(), 64)
	if err != nil {
		ExitOnError("option %s expects a float: %s", self.name, err)
	}
	return v
}

// ParseRunArgs resolves the run subcommand's arguments into a
// RunConfig. The first argument is the workload name.
func ParseRunArgs(args []string) (*RunConfig, error) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return nil, fmt.Errorf("run requires a workload name")
	}
	cfg := NewRunConfig()
	cfg.Workload = args[0]
	cursor := &argCursor{args: args[1:], shorts: shortOptions}
	for cursor.next() {
		if strings.HasPrefix(cursor.name, "workload.") {
			name := strings.TrimPrefix(cursor.name, "workload.")
			cfg.WorkloadParameters[name] = cursor.value()
			continue
		}
		switch cursor.name {
		case "host":
			cfg.Host = cursor.value()
		case "cql-port":
			cfg.Port = cursor.intValue()
		case "username":
			cfg.Username = cursor.value()
		case "password":
			cfg.Password = cursor.value()
		case "duration":
			seconds, err := ParseHumanDuration(cursor.value())
			if err != nil {
				return nil, err
			}
			cfg.Duration = seconds
		case "iterations":
			count, err := ParseHumanCount(cursor.value())
			if err != nil {
				return nil, err
			}
			cfg.Iterations = count
		case "threads":
			cfg.Threads = cursor.intValue()
		case "rate":
			cfg.Rate = cursor.int64Value()
		case "partitions":
			count, err := ParseHumanCount(cursor.value())
			if err != nil {
				return nil, err
			}
			cfg.Partitions = count
		case "partitiongenerator":
			cfg.PartitionKeyGenerator = cursor.value()
		case "read-rate":
			cfg.ReadRate = cursor.floatValue()
		case "delete-rate":
			cfg.DeleteRate = cursor.floatValue()
		case "queue-depth":
			cfg.QueueDepth = cursor.intValue()
		case "populate":
			option, err := ParsePopulateOption(cursor.value())
			if err != nil {
				return nil, err
			}
			cfg.Populate = option
		case "field":
			spec := cursor.value()
			eq := strings.Index(spec, "=")
			if eq <= 0 {
				return nil, fmt.Errorf("--field expects table.column=fn(args), got %q", spec)
			}
			cfg.Fields[spec[:eq]] = spec[eq+1:]
		case "cl":
			cfg.ConsistencyLevel = strings.ToUpper(cursor.value())
		case "serial-cl":
			cfg.SerialConsistencyLevel = strings.ToUpper(cursor.value())
		case "max-read-latency":
			cfg.MaxReadLatencyMillis = cursor.int64Value()
		case "max-write-latency":
			cfg.MaxWriteLatencyMillis = cursor.int64Value()
		case "paging":
			cfg.Paging = cursor.intValue()
		case "paginate":
			cfg.Paginate = true
		case "coordinator-only":
			cfg.CoordinatorOnly = true
		case "ttl":
			cfg.TTL = cursor.int64Value()
		case "compaction":
			cfg.Compaction = cursor.value()
		case "compression":
			cfg.Compression = cursor.value()
		case "replication":
			cfg.Replication = cursor.value()
		case "keyspace":
			cfg.Keyspace = cursor.value()
		case "rawlog":
			cfg.RawLogPath = cursor.value()
		case "prometheus-port":
			cfg.PrometheusPort = cursor.intValue()
		case "status-interval":
			cfg.StatusIntervalSeconds = cursor.intValue()
		case "log-level":
			if err := SetLogLevel(cursor.value()); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("unknown option: %s", cursor.name)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runCommand(args []string) {
	cfg, err := ParseRunArgs(args)
	if err != nil {
		ExitOnError("%s", err)
	}
	session, err := NewCassandraSession(cfg)
	if err != nil {
		ExitOnError("%s", err)
	}
	defer session.Close()

	runner, err := PrepareRun(cfg, session)
	if err != nil {
		ExitOnError("%s", err)
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-interrupt
		runner.Terminator().Drain(ReasonStop)
	}()

	result := runner.Run()
	PrintSummary(result, runner.Context().Metrics)
}

// PrintSummary writes the end-of-run report.
func PrintSummary(result *RunResult, metrics *Metrics) {
	snapshot := metrics.Snapshot()
	Printf("run %s after %.1fs", result.Status(), result.Elapsed.Seconds())
	printTimerLine("select", snapshot.Selects)
	printTimerLine("mutation", snapshot.Mutations)
	printTimerLine("delete", snapshot.Deletions)
	printTimerLine("populate", snapshot.Populate)
	Printf("[error] count=%d rate_1min=%.2f/s", snapshot.Errors.Count, snapshot.Errors.Rate1)
}

func printTimerLine(name string, s *TimerSnapshot) {
	if s.Count == 0 {
		return
	}
	Printf("[%s] count=%d mean(us)=%.1f median(us)=%d p95(us)=%d p99(us)=%d p999(us)=%d max(us)=%d",
		name, s.Count, s.Mean, s.Median, s.P95, s.P99, s.P999, s.Max)
}

func infoCommand(args []string) {
	if len(args) == 0 {
		ExitOnError("info requires a workload name")
	}
	entry, ok := Workloads[args[0]]
	if !ok {
		ExitOnError("unsupported workload: %s", args[0])
	}
	w := entry.Make()
	Printf("%s: %s", entry.Name, entry.Description)
	Printf("default read rate: %v", w.DefaultReadRate())
	if len(entry.MinimumVersion) > 0 {
		Printf("minimum version: %s", entry.MinimumVersion)
	}
	Printf("schema:")
	for _, ddl := range w.Schema() {
		Printf("  %s;", ddl)
	}
	params := w.Parameters()
	if len(params) == 0 {
		return
	}
	Printf("parameters:")
	for _, p := range params {
		if p.Kind == ParameterEnum {
			Printf("  %s (%s %v): %s", p.Name, p.Kind, p.Variants, p.Description)
		} else {
			Printf("  %s (%s): %s", p.Name, p.Kind, p.Description)
		}
	}
}

func listCommand() {
	for _, entry := range ListWorkloads() {
		Printf("%-24s %s", entry.Name, entry.Description)
	}
}

func fieldsCommand() {
	for _, entry := range g.ListFieldGenerators() {
		Printf("%-12s %s", entry.Name, entry.Description)
	}
}

func serverCommand(args []string) {
	port := 8888
	cursor := &argCursor{args: args}
	for cursor.next() {
		switch cursor.name {
		case "p", "port":
			port = cursor.intValue()
		default:
			ExitOnError("unknown option: %s", cursor.name)
		}
	}
	manager := NewStressTestManager()
	server, err := NewControlServer(port, manager)
	if err != nil {
		ExitOnError("fail to listen on port %d: %s", port, err)
	}
	Infof("control server listening on %s", server.Addr())
	server.Serve()
}
