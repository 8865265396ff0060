package client

import (
	"net/url"

	"github.com/diwise/parse-adapter/pkg/parse/types/pointers"
)

const (
	PathUsers                string = "users"
	PathMe                   string = "users/me"
	PathLogin                string = "login"
	PathLogout               string = "logout"
	PathRequestPasswordReset string = "requestPasswordReset"
	PathFunctions            string = "functions"
)

// PathForType returns the endpoint path of a model or action name
func PathForType(typeName string) string {
	switch typeName {
	case pointers.UserType, "parseUser":
		return PathUsers
	case PathRequestPasswordReset, PathLogin, PathLogout:
		return typeName
	case "me":
		return PathMe
	case "function", PathFunctions:
		return PathFunctions
	default:
		return "classes/" + pointers.ClassName(typeName)
	}
}

func PathForObject(typeName, objectID string) string {
	return PathForType(typeName) + "/" + url.PathEscape(objectID)
}

func FunctionPath(name string) string {
	return PathFunctions + "/" + url.PathEscape(name)
}
