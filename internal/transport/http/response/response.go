package response

// Resp 所有接口统一的外层信封；data 缺省输出 {} 而不是 null
type Resp struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data"`
}

var emptyData = struct{}{}

// Message 自定义文案优先，否则取码表默认
func Message(code int, custom string) string {
	if custom != "" {
		return custom
	}
	if m, ok := CodeMsgMap[code]; ok {
		return m
	}
	return CodeMsgMap[CodeServerError]
}

func New(code int, msg string, data any) Resp {
	if data == nil {
		data = emptyData
	}
	return Resp{Code: code, Msg: msg, Data: data}
}

func OK(data any) Resp { return New(CodeOK, Message(CodeOK, ""), data) }

func Error(code int, msg string) Resp { return New(code, Message(code, msg), nil) }

// ErrorWith 失败时也带 data，比如字段校验明细、就绪检查结果
func ErrorWith(code int, msg string, data any) Resp {
	return New(code, Message(code, msg), data)
}
