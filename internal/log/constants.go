package log

const (
	KeyAppName            = "app"
	KeyCacheKey           = "cacheKey"
	KeyCart               = "cart"
	KeyCartItems          = "cartItems"
	KeyCartTotal          = "cartTotal"
	KeyConfig             = "config"
	KeyDbURL              = "dbUrl"
	KeyPathValues         = "pathValues"
	KeyProcess            = "process"
	KeyProduct            = "product"
	KeyProductID          = "productId"
	KeyQuantity           = "quantity"
	KeyRequestBody        = "requestBody"
	KeyRequestHeader      = "requestHeader"
	KeyRequestHost        = "host"
	KeyRequestID          = "requestId"
	KeyRequestIp          = "requesterIP"
	KeyRequestMethod      = "requestMethod"
	KeyRequestProcessedAt = "requestProcessedAt"
	KeyRequestURI         = "requestURI"
	KeyRequestURL         = "requestURL"
	KeyRole               = "role"
	KeySpanID             = "spanId"
	KeyTag                = "tag"
	KeyToken              = "token"
	KeyTraceID            = "traceId"
	KeyUserID             = "userId"
)

const HeaderRequestID = "X-Request-Id"
