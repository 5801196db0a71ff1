package common

const (
	AppMainMercadinho = "mercadinho"

	AppCartService = "cart-service"
	AppUserService = "user-service"
	AudienceUser   = "audience-user"

	RoleAdmin = "admin"
)
