package xmetrics

// 通用属性构造
func String(key, value string) Attr { return Attr{Key: key, Value: value} }
func Bool(key string, value bool) Attr { return Attr{Key: key, Value: value} }
func Int(key string, value int) Attr { return Attr{Key: key, Value: value} }
func Int64(key string, value int64) Attr { return Attr{Key: key, Value: value} }

// 发号节点与 HTTP 语义约定的属性键
const (
	AttrDataCenterID = "xsnow.datacenter_id"
	AttrWorkerID     = "xsnow.worker_id"
	AttrEngine       = "xsnow.engine"

	AttrHTTPMethod = "http.request.method"
	AttrHTTPRoute  = "http.route"
	AttrHTTPStatus = "http.response.status_code"
)

// Node 返回标识发号节点的属性对，用于按节点区分指标。
func Node(dataCenterID, workerID int64) []Attr {
	return []Attr{Int64(AttrDataCenterID, dataCenterID), Int64(AttrWorkerID, workerID)}
}

// HTTPRequest 返回 server span 的请求属性。
func HTTPRequest(method, route string) []Attr {
	return []Attr{String(AttrHTTPMethod, method), String(AttrHTTPRoute, route)}
}

// HTTPStatus 返回响应状态码属性。
func HTTPStatus(code int) Attr { return Int(AttrHTTPStatus, code) }
