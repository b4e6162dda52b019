package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/hatlonely/odbx/log"
	"github.com/hatlonely/odbx/odb/odbtest"
	"github.com/hatlonely/odbx/odb/schema"
	. "github.com/smartystreets/goconvey/convey"
)

func run(args ...string) (string, error) {
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommands(t *testing.T) {
	original := log.Default()
	log.SetDefault(log.Discard())
	defer log.SetDefault(original)

	Convey("odbx", t, func() {
		server := odbtest.NewServer()
		defer server.Close()
		server.User, server.Password = "root", "pwd"
		server.SetDatabases("demo", "other")
		server.AddClass(&schema.Class{Name: "Person", Properties: []schema.Property{{Name: "name"}}})

		params := server.Params("demo", nil)
		target := []string{
			"--host", params.Server.Host,
			"--port", strconv.Itoa(params.Server.Port),
			"--database", "demo",
			"--user", "root",
			"--password", "pwd",
		}

		Convey("databases", func() {
			out, err := run(append(target, "databases")...)
			So(err, ShouldBeNil)
			var names []string
			So(json.Unmarshal([]byte(out), &names), ShouldBeNil)
			So(names, ShouldResemble, []string{"demo", "other"})
		})

		Convey("schema", func() {
			out, err := run(append(target, "schema", "Person")...)
			So(err, ShouldBeNil)
			var class schema.Class
			So(json.Unmarshal([]byte(out), &class), ShouldBeNil)
			So(class.Name, ShouldEqual, "Person")
			So(class.HasProperty("name"), ShouldBeTrue)
		})

		Convey("query 使用自定义 limit", func() {
			server.SetQueryResult(func(string) []interface{} {
				return []interface{}{map[string]interface{}{"name": "a"}, map[string]interface{}{"name": "b"}}
			})
			out, err := run(append(target, "query", "SELECT FROM Person", "--limit", "1")...)
			So(err, ShouldBeNil)
			var rows []map[string]interface{}
			So(json.Unmarshal([]byte(out), &rows), ShouldBeNil)
			So(len(rows), ShouldEqual, 1)
		})

		Convey("command", func() {
			out, err := run(append(target, "command", "DELETE FROM Person")...)
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "[]")
		})

		Convey("exists 和 get", func() {
			out, err := run(append(target, "exists", "#9:0")...)
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "false")

			_, err = run(append(target, "get", "#9:0")...)
			So(err, ShouldNotBeNil)
		})

		Convey("配置文件与命令行参数合并", func() {
			path := filepath.Join(t.TempDir(), "session.toml")
			content := "database = \"demo\"\n\n[server]\nhost = \"" + params.Server.Host + "\"\nport = " +
				strconv.Itoa(params.Server.Port) + "\n\n[credentials]\nname = \"root\"\npassword = \"wrong\"\n"
			So(os.WriteFile(path, []byte(content), 0644), ShouldBeNil)

			_, err := run("--config", path, "schema", "Person")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "AuthError")

			_, err = run("--config", path, "--password", "pwd", "schema", "Person")
			So(err, ShouldBeNil)
		})

		Convey("缺少 host", func() {
			_, err := run("--database", "demo", "schema", "Person")
			So(err, ShouldNotBeNil)
		})
	})
}
