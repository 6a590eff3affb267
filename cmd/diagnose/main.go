package main

import (
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"trade-bridge-go/config"
)

// 一次性环境体检：配置可读、网关端口可达、桥接服务在线。
// 任一硬性失败以非零码退出。
func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	statusURL := flag.String("statusURL", "", "桥接器 /status 地址，留空则由配置推导")
	flag.Parse()

	fmt.Println("=== BRIDGE DIAGNOSTICS ===")
	failed := false

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		fmt.Printf("[FAIL] config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("[PASS] config loaded (gateway %s:%d)\n", cfg.Gateway.Host, cfg.Gateway.Port)

	ports := []int{cfg.Gateway.Port}
	if cfg.Gateway.BackupPort > 0 {
		ports = append(ports, cfg.Gateway.BackupPort)
	}
	open := false
	for _, p := range ports {
		addr := net.JoinHostPort(cfg.Gateway.Host, fmt.Sprintf("%d", p))
		conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
		if err != nil {
			fmt.Printf("[FAIL] gateway port %d closed\n", p)
			continue
		}
		conn.Close()
		fmt.Printf("[PASS] gateway port %d open\n", p)
		open = true
	}
	if !open {
		fmt.Println("[!!!] no gateway port reachable — is the gateway running with API access enabled?")
		failed = true
	}

	url := *statusURL
	if url == "" {
		url = fmt.Sprintf("http://127.0.0.1:%d/status", cfg.Server.Port)
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		fmt.Printf("[WARN] bridge server not reachable at %s (is it running?)\n", url)
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			fmt.Printf("[PASS] bridge server up at %s\n", url)
		} else {
			fmt.Printf("[FAIL] bridge server returned %d\n", resp.StatusCode)
			failed = true
		}
	}

	fmt.Println("==========================")
	if failed {
		os.Exit(1)
	}
}
