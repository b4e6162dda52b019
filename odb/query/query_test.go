package query

import (
	"context"
	"net/http"
	"testing"

	"github.com/hatlonely/odbx/log"
	"github.com/hatlonely/odbx/odb/batch"
	"github.com/hatlonely/odbx/odb/client"
	"github.com/hatlonely/odbx/odb/odbtest"
	"github.com/hatlonely/odbx/odb/result"
	"github.com/hatlonely/odbx/odb/schema"
	"github.com/hatlonely/odbx/odb/session"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/assert"
)

type joined struct {
	ARID string `json:"A_rid"`
	X    int    `json:"A.x"`
	Z    string `json:"B.z"`
	W    bool   `json:"w"`
}

func (joined) FieldMap() []string {
	return []string{"A.x", "B.z", "w"}
}

type flat struct {
	Y  string `json:"y"`
	CX string `json:"cx"`
}

func (*flat) FieldMap() []string {
	return []string{"y", "A.y", "B.x", "C.cx", "cx", "z"}
}

type plain struct {
	Name string `json:"name"`
}

func newServer() *odbtest.Server {
	server := odbtest.NewServer()
	server.AddClass(&schema.Class{Name: "A", Properties: []schema.Property{{Name: "x"}, {Name: "y"}}})
	server.AddClass(&schema.Class{Name: "B", Properties: []schema.Property{{Name: "z"}}})
	server.AddClass(&schema.Class{Name: "C", Properties: []schema.Property{{Name: "cx"}}})
	return server
}

func newSession(server *odbtest.Server) *session.Session {
	return session.NewSession(server.Params("demo", &client.Credentials{Name: "root", Password: "pwd"}), nil, log.Discard())
}

func TestFieldMap(t *testing.T) {
	assert.Equal(t, []string{"A.x", "B.z", "w"}, FieldMap[joined]())
	assert.Equal(t, []string{"A.x", "B.z", "w"}, FieldMap[*joined]())
	assert.Equal(t, []string{"y", "A.y", "B.x", "C.cx", "cx", "z"}, FieldMap[flat]())
	assert.Equal(t, []string{"y", "A.y", "B.x", "C.cx", "cx", "z"}, FieldMap[*flat]())
	assert.Nil(t, FieldMap[plain]())
	assert.Nil(t, FieldMap[map[string]interface{}]())
}

func TestFrom(t *testing.T) {
	Convey("From", t, func() {
		server := newServer()
		defer server.Close()
		ctx := context.Background()
		s := newSession(server)

		Convey("未连接", func() {
			stage := From(ctx, s, "A")
			So(stage.Result().Code, ShouldEqual, result.CodeNotConnected)
			So(Select[joined](ctx, stage, false).Code, ShouldEqual, result.CodeNotConnected)
			So(stage.Count(ctx).Code, ShouldEqual, result.CodeNotConnected)
			So(stage.Delete(ctx).Code, ShouldEqual, result.CodeNotConnected)
			So(stage.DeleteToTransaction().Code, ShouldEqual, result.CodeNotConnected)
			So(stage.Where("x > 1").Count(ctx).Code, ShouldEqual, result.CodeNotConnected)

			Convey("未连接检查先于类名校验", func() {
				So(From(ctx, s).Result().Code, ShouldEqual, result.CodeNotConnected)
				So(From(ctx, s, "").Result().Code, ShouldEqual, result.CodeNotConnected)
			})
			So(server.Count(), ShouldEqual, 0)
		})

		Convey("已连接", func() {
			So(s.Connect(ctx).IsOK(), ShouldBeTrue)

			Convey("类名校验", func() {
				n := server.Count()
				for _, stage := range []FromStage{From(ctx, s), From(ctx, s, "A", " "), FromList(ctx, s, "A,,B")} {
					So(stage.Result().Code, ShouldEqual, result.CodeParametersError)
					So(Select[joined](ctx, stage.Where("x > 1"), true).Code, ShouldEqual, result.CodeParametersError)
					So(stage.Delete(ctx).Code, ShouldEqual, result.CodeParametersError)
				}
				So(server.Count(), ShouldEqual, n)
			})

			Convey("获取类结构并复用缓存", func() {
				n := server.Count()
				stage := From(ctx, s, "A", "B")
				So(stage.Result().IsOK(), ShouldBeTrue)
				So(stage.Classes(), ShouldResemble, []string{"A", "B"})
				So(server.Count(), ShouldEqual, n+2)

				From(ctx, s, "B", "A")
				So(server.Count(), ShouldEqual, n+2)
			})

			Convey("类结构获取失败被忽略", func() {
				stage := From(ctx, s, "A", "Missing")
				So(stage.Result().IsOK(), ShouldBeTrue)
				So(stage.Projection([]string{"x", "Missing.q"}, false), ShouldEqual, "@rid as A_rid, @rid as Missing_rid, x")
			})

			Convey("FromList 按逗号拆分", func() {
				stage := FromList(ctx, s, "A, B")
				So(stage.Classes(), ShouldResemble, []string{"A", "B"})
				So(stage.CountSQL(), ShouldEqual, "SELECT COUNT(*) as Result FROM A, B")
			})
		})
	})
}

func TestProjection(t *testing.T) {
	Convey("Projection", t, func() {
		server := newServer()
		defer server.Close()
		ctx := context.Background()
		s := newSession(server)
		So(s.Connect(ctx).IsOK(), ShouldBeTrue)

		Convey("带类名和不带类名的字段", func() {
			stage := From(ctx, s, "A", "B")
			So(stage.Projection(FieldMap[joined](), false), ShouldEqual, "@rid as A_rid, @rid as B_rid, A.x, B.z")
		})

		Convey("selectAll 忽略字段声明", func() {
			stage := From(ctx, s, "A", "B")
			So(stage.Projection(FieldMap[joined](), true), ShouldEqual, "*")
			So(stage.SelectSQL(FieldMap[joined](), true), ShouldEqual, "SELECT * FROM A, B")
		})

		Convey("只使用 FROM 中类的结构", func() {
			So(s.GetSchema(ctx, "C").IsOK(), ShouldBeTrue)
			stage := From(ctx, s, "A", "B")
			So(stage.Projection(FieldMap[flat](), false), ShouldEqual, "@rid as A_rid, @rid as B_rid, y, A.y, z")
		})

		Convey("多级字段按类名之后的完整路径匹配", func() {
			stage := From(ctx, s, "A")
			So(stage.Projection([]string{"A.x.y", "A.x", "A."}, false), ShouldEqual, "@rid as A_rid, A.x")
		})

		Convey("没有字段声明时只投影 rid", func() {
			stage := From(ctx, s, "A").Where("")
			So(stage.SelectSQL(FieldMap[plain](), false), ShouldEqual, "SELECT @rid as A_rid FROM A")
		})
	})
}

func TestTerminalOperations(t *testing.T) {
	Convey("终止操作", t, func() {
		server := newServer()
		defer server.Close()
		ctx := context.Background()
		s := newSession(server)
		So(s.Connect(ctx).IsOK(), ShouldBeTrue)

		Convey("Select 发送生成的语句并解码", func() {
			var statements []string
			server.SetQueryResult(func(stmt string) []interface{} {
				statements = append(statements, stmt)
				return []interface{}{
					map[string]interface{}{"A_rid": "#10:0", "A.x": 7, "B.z": "zz"},
				}
			})

			rows := Select[joined](ctx, From(ctx, s, "A", "B").Where("A.x > 1"), false)
			So(rows.IsOK(), ShouldBeTrue)
			So(rows.Value, ShouldResemble, []joined{{ARID: "#10:0", X: 7, Z: "zz"}})
			So(statements, ShouldResemble, []string{"SELECT @rid as A_rid, @rid as B_rid, A.x, B.z FROM A, B WHERE A.x > 1"})

			all := Select[joined](ctx, From(ctx, s, "A"), true)
			So(all.IsOK(), ShouldBeTrue)
			So(statements[1], ShouldEqual, "SELECT * FROM A")
		})

		Convey("Count", func() {
			var statement string
			server.SetQueryResult(func(stmt string) []interface{} {
				statement = stmt
				return []interface{}{map[string]interface{}{"Result": 5}}
			})

			count := From(ctx, s, "A").Where("x > 1").Count(ctx)
			So(count.IsOK(), ShouldBeTrue)
			So(count.Value, ShouldEqual, 5)
			So(statement, ShouldEqual, "SELECT COUNT(*) as Result FROM A WHERE x > 1")

			So(From(ctx, s, "A").Count(ctx).Value, ShouldEqual, 5)
			So(statement, ShouldEqual, "SELECT COUNT(*) as Result FROM A")

			Convey("没有返回记录", func() {
				server.SetQueryResult(func(string) []interface{} { return nil })
				So(From(ctx, s, "A").Count(ctx).Code, ShouldEqual, result.CodeGenericError)
			})

			Convey("服务端错误", func() {
				server.FailWith("query", http.StatusBadRequest)
				So(From(ctx, s, "A").Count(ctx).Code, ShouldEqual, result.CodeGenericError)
			})
		})

		Convey("Delete 与 DeleteToTransaction 使用相同语句", func() {
			stage := From(ctx, s, "A").Where("x = 1")
			So(stage.Delete(ctx).IsOK(), ShouldBeTrue)

			req := server.Last()
			So(req.Method, ShouldEqual, http.MethodPost)
			So(req.Path, ShouldEqual, "/command/demo/sql")
			So(string(req.Body), ShouldEqual, "DELETE FROM A WHERE x = 1")

			op := stage.DeleteToTransaction()
			So(op.IsOK(), ShouldBeTrue)
			So(op.Value.Type, ShouldEqual, batch.KindCommand)
			So(op.Value.Language, ShouldEqual, batch.LanguageSQL)
			So(op.Value.Command, ShouldEqual, string(req.Body))

			Convey("加入事务提交", func() {
				tx := s.CreateTransaction(true).Append(op.Value)
				So(tx.Execute(ctx).IsOK(), ShouldBeTrue)
				So(server.Last().Path, ShouldEqual, "/batch/demo")
			})

			Convey("没有 WHERE", func() {
				stage := From(ctx, s, "A", "B")
				So(stage.DeleteSQL(), ShouldEqual, "DELETE FROM A, B")
				So(stage.DeleteToTransaction().Value.Command, ShouldEqual, "DELETE FROM A, B")
			})
		})

		Convey("断开后终止操作被拦截", func() {
			stage := From(ctx, s, "A")
			So(s.Disconnect(ctx).IsOK(), ShouldBeTrue)
			n := server.Count()
			So(Select[joined](ctx, stage, false).Code, ShouldEqual, result.CodeNotConnected)
			So(stage.Count(ctx).Code, ShouldEqual, result.CodeNotConnected)
			So(stage.Delete(ctx).Code, ShouldEqual, result.CodeNotConnected)
			So(server.Count(), ShouldEqual, n)
		})
	})
}
