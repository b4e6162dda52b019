// odbx 是会话层的命令行入口，输出 JSON。
//
//	odbx --config session.yaml query "SELECT FROM Person" --limit 10
//	odbx --host localhost --port 2480 --database demo --user root --password root schema Person
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
