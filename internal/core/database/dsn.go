package database

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	drv "github.com/go-sql-driver/mysql"
)

// mysqlConfig 接受驱动原生 DSN（user:pass@tcp(host:3306)/db），
// 也接受 mysql:// 与 jdbc:mysql:// 形式，方便直接粘贴运维给的连接串
// user/pass 非空时覆盖串里的账号；parseTime 总是打开
func mysqlConfig(raw, user, pass string) (*drv.Config, error) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "jdbc:")
	if raw == "" {
		return nil, ErrEmptyDSN
	}

	var (
		cfg *drv.Config
		err error
	)
	if strings.HasPrefix(raw, "mysql://") {
		cfg, err = fromURL(raw)
	} else {
		cfg, err = drv.ParseDSN(raw)
	}
	if err != nil {
		return nil, fmt.Errorf("database: parse mysql dsn: %w", err)
	}

	if user != "" {
		cfg.User = user
	}
	if pass != "" {
		cfg.Passwd = pass
	}
	cfg.ParseTime = true
	return cfg, nil
}

func fromURL(raw string) (*drv.Config, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	cfg := drv.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}

	q := u.Query()
	if v := q.Get("user"); v != "" {
		cfg.User = v
	}
	if v := q.Get("password"); v != "" {
		cfg.Passwd = v
	}
	if v := q.Get("serverTimezone"); v != "" {
		loc, err := time.LoadLocation(v)
		if err != nil {
			return nil, fmt.Errorf("serverTimezone %q: %w", v, err)
		}
		cfg.Loc = loc
	}
	if v := strings.ToLower(q.Get("useSSL")); v != "" {
		cfg.TLSConfig = jdbcTLS(v)
	}

	charset := q.Get("charset")
	if charset == "" {
		charset = q.Get("characterEncoding")
	}
	if charset == "" {
		charset = "utf8mb4"
	}

	// 其余参数原样交给驱动；JDBC 专用的丢掉
	params := map[string]string{"charset": charset}
	for k, vs := range q {
		switch k {
		case "user", "password", "serverTimezone", "useSSL", "charset",
			"characterEncoding", "useUnicode", "zeroDateTimeBehavior", "parseTime":
			continue
		}
		if len(vs) > 0 {
			params[k] = vs[0]
		}
	}
	cfg.Params = params
	return cfg, nil
}

func jdbcTLS(v string) string {
	switch v {
	case "true", "1":
		return "true"
	case "skip-verify", "preferred":
		return v
	default:
		return "false"
	}
}

// maskedDSN 打日志用，密码换成 ****
func maskedDSN(cfg *drv.Config) string {
	c := cfg.Clone()
	if c.Passwd != "" {
		c.Passwd = "****"
	}
	return c.FormatDSN()
}
