// Package gwconfig loads and holds the gateway's runtime configuration.
package gwconfig

import (
	"flag"
	"os"

	jsoniter "github.com/json-iterator/go"
)

const maxWorkerThread = 100

var jsonCompat = jsoniter.ConfigCompatibleWithStandardLibrary

// Config mirrors the recognized options enumerated in the specification's
// external-interfaces section.
type Config struct {
	ServerIP   string `json:"server_ip"`
	ServerPort int    `json:"server_port"`
	AdminPort  int    `json:"admin_port"`
	WorkerNum  int    `json:"worker_num"`

	ZPMetaIPPorts []string `json:"zp_meta_ip_ports"`
	ZPTableName   string   `json:"zp_table_name"`

	RedisIPPort string `json:"redis_ip_port"`
	RedisPasswd string `json:"redis_passwd"`

	PidFile  string `json:"pid_file"`
	LockFile string `json:"lock_file"`
}

// CLI holds the command-line overrides layered on top of a loaded Config.
type CLI struct {
	ConfigPath string
	ServerIP   string
	ServerPort int
	AdminPort  int
	WorkerNum  int
}

func RegisterFlags(fs *flag.FlagSet) *CLI {
	cli := &CLI{}
	fs.StringVar(&cli.ConfigPath, "config", "", "config filename: JSON file with the gateway configuration")
	fs.StringVar(&cli.ServerIP, "server_ip", "", "override: client-facing listener IP")
	fs.IntVar(&cli.ServerPort, "server_port", 0, "override: client-facing listener port")
	fs.IntVar(&cli.AdminPort, "admin_port", 0, "override: admin listener port")
	fs.IntVar(&cli.WorkerNum, "worker_num", 0, "override: worker pool size")
	return cli
}

func defaults() Config {
	return Config{
		ServerIP:    "0.0.0.0",
		ServerPort:  9939,
		AdminPort:   9949,
		WorkerNum:   20,
		ZPTableName: "zgw",
		PidFile:     "zgw.pid",
		LockFile:    "zgw.lock",
	}
}

// Load reads the JSON config at path (if non-empty) over top of the
// built-in defaults, then applies CLI overrides, then clamps worker_num.
func Load(path string, cli *CLI) (*Config, error) {
	cfg := defaults()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := jsonCompat.Unmarshal(b, &cfg); err != nil {
			return nil, err
		}
	}
	if cli != nil {
		if cli.ServerIP != "" {
			cfg.ServerIP = cli.ServerIP
		}
		if cli.ServerPort != 0 {
			cfg.ServerPort = cli.ServerPort
		}
		if cli.AdminPort != 0 {
			cfg.AdminPort = cli.AdminPort
		}
		if cli.WorkerNum != 0 {
			cfg.WorkerNum = cli.WorkerNum
		}
	}
	if cfg.WorkerNum > maxWorkerThread {
		cfg.WorkerNum = maxWorkerThread
	}
	if cfg.WorkerNum <= 0 {
		cfg.WorkerNum = 1
	}
	return &cfg, nil
}
