package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/hatlonely/odbx/odb/client"
	"github.com/hatlonely/odbx/odb/result"
	"github.com/hatlonely/odbx/odb/session"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type flags struct {
	config   string
	scheme   string
	host     string
	port     int
	database string
	user     string
	password string
}

// options 先加载配置文件，再用显式指定的命令行参数覆盖
func (f *flags) options(cmd *cobra.Command) (*session.Options, error) {
	options := &session.Options{}
	if f.config != "" {
		loaded, err := session.LoadOptions(f.config)
		if err != nil {
			return nil, err
		}
		options = loaded
	}

	changed := cmd.Flags().Changed
	if changed("scheme") || options.Server.Scheme == "" {
		options.Server.Scheme = f.scheme
	}
	if changed("host") {
		options.Server.Host = f.host
	}
	if changed("port") || options.Server.Port == 0 {
		options.Server.Port = f.port
	}
	if changed("database") {
		options.Database = f.database
	}
	if changed("user") || changed("password") {
		creds := &client.Credentials{}
		if options.Credentials != nil {
			*creds = *options.Credentials
		}
		if changed("user") {
			creds.Name = f.user
		}
		if changed("password") {
			creds.Password = f.password
		}
		options.Credentials = creds
	}
	return options, nil
}

// withSession 建立连接后执行 fn，结束时断开
func (f *flags) withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session.Session) (interface{}, result.Result)) error {
	options, err := f.options(cmd)
	if err != nil {
		return err
	}
	s, err := session.NewSessionWithOptions(options)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if r := s.Connect(ctx); !r.IsOK() {
		return errors.WithMessage(r.Err(), "connect")
	}
	defer s.Disconnect(ctx)

	v, r := fn(ctx, s)
	if !r.IsOK() {
		return r.Err()
	}
	return printJSON(cmd.OutOrStdout(), v)
}

func printJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func newRootCommand() *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:           "odbx",
		Short:         "Talk to a REST document database through a session",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&f.config, "config", "c", "", "session options file (yaml, toml, ini or json)")
	pf.StringVar(&f.scheme, "scheme", "http", "server scheme")
	pf.StringVar(&f.host, "host", "", "server host")
	pf.IntVar(&f.port, "port", 2480, "server port")
	pf.StringVarP(&f.database, "database", "d", "", "database name")
	pf.StringVarP(&f.user, "user", "u", "", "user name")
	pf.StringVarP(&f.password, "password", "p", "", "password")

	root.AddCommand(
		newDatabasesCommand(f),
		newQueryCommand(f),
		newCommandCommand(f),
		newSchemaCommand(f),
		newGetCommand(f),
		newExistsCommand(f),
	)
	return root
}

func newDatabasesCommand(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "databases",
		Short: "List databases on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			options, err := f.options(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			r := session.ListDatabases(ctx, nil, options.Server, options.Credentials)
			if !r.IsOK() {
				return r.Err()
			}
			return printJSON(cmd.OutOrStdout(), r.Value)
		},
	}
}

func newQueryCommand(f *flags) *cobra.Command {
	var limit int
	var fetchPlan string
	cmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a read-only SQL statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return f.withSession(cmd, func(ctx context.Context, s *session.Session) (interface{}, result.Result) {
				var opts []session.QueryOption
				if cmd.Flags().Changed("limit") {
					opts = append(opts, session.WithLimit(limit))
				}
				if cmd.Flags().Changed("fetch-plan") {
					opts = append(opts, session.WithFetchPlan(fetchPlan))
				}
				r := session.Query[map[string]interface{}](ctx, s, args[0], opts...)
				return r.Value, r.Result
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", session.DefaultQueryLimit, "maximum number of records")
	cmd.Flags().StringVar(&fetchPlan, "fetch-plan", session.DefaultFetchPlan, "fetch plan")
	return cmd
}

func newCommandCommand(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "command <sql>",
		Short: "Run a SQL command",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return f.withSession(cmd, func(ctx context.Context, s *session.Session) (interface{}, result.Result) {
				r := session.Command[map[string]interface{}](ctx, s, args[0])
				return r.Value, r.Result
			})
		},
	}
}

func newSchemaCommand(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "schema <class>",
		Short: "Show the schema of a class",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return f.withSession(cmd, func(ctx context.Context, s *session.Session) (interface{}, result.Result) {
				r := s.GetSchema(ctx, args[0])
				return r.Value, r.Result
			})
		},
	}
}

func newGetCommand(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "get <rid>",
		Short: "Fetch a document by record id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return f.withSession(cmd, func(ctx context.Context, s *session.Session) (interface{}, result.Result) {
				r := session.GetByID[map[string]interface{}](ctx, s, args[0])
				return r.Value, r.Result
			})
		},
	}
}

func newExistsCommand(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "exists <rid>",
		Short: "Check whether a document exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return f.withSession(cmd, func(ctx context.Context, s *session.Session) (interface{}, result.Result) {
				r := s.Exists(ctx, args[0])
				return r.Value, r.Result
			})
		},
	}
}
