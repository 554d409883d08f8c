// Package docs is generated by swag; regenerate with
// `swag init -g cmd/server/main.go -o docs`.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth/register": {"post": {"tags": ["auth"], "summary": "Create an account", "operationId": "register", "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "409": {"description": "Conflict"}}}},
        "/auth/login": {"post": {"tags": ["auth"], "summary": "Exchange credentials for a token", "operationId": "login", "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}},
        "/users/{id}": {"get": {"tags": ["users"], "summary": "Public profile", "operationId": "getUser", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/users/me": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["users"], "summary": "Profile of the caller", "operationId": "getMe", "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["users"], "summary": "Edit the caller's bio and avatar", "operationId": "updateMe", "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "401": {"description": "Unauthorized"}}}
        },
        "/users/{id}/posts": {"get": {"tags": ["users"], "summary": "Posts written by a user, newest first", "operationId": "userPosts", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"type": "integer", "name": "page", "in": "query"}, {"type": "integer", "name": "page_size", "in": "query"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/users/{id}/follow-counts": {"get": {"tags": ["follows"], "summary": "Follower and following counts", "operationId": "followCounts", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/posts": {
            "get": {"tags": ["posts"], "summary": "List posts", "operationId": "listPosts", "parameters": [{"type": "string", "name": "sort", "in": "query"}, {"type": "integer", "name": "page", "in": "query"}, {"type": "integer", "name": "page_size", "in": "query"}], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["posts"], "summary": "Create a post", "operationId": "createPost", "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "401": {"description": "Unauthorized"}}}
        },
        "/posts/search": {"get": {"tags": ["posts"], "summary": "Search posts by title or content", "operationId": "searchPosts", "parameters": [{"type": "string", "name": "q", "in": "query", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/posts/{id}": {
            "get": {"tags": ["posts"], "summary": "Post detail", "operationId": "getPost", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["posts"], "summary": "Edit own post", "operationId": "updatePost", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}, "404": {"description": "Not Found"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["posts"], "summary": "Delete own post", "operationId": "deletePost", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}, "404": {"description": "Not Found"}}}
        },
        "/posts/saved": {"get": {"security": [{"BearerAuth": []}], "tags": ["saved"], "summary": "Posts saved by the caller, most recently saved first", "operationId": "listSavedPosts", "parameters": [{"type": "integer", "name": "page", "in": "query"}, {"type": "integer", "name": "page_size", "in": "query"}], "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}},
        "/posts/{id}/save": {"post": {"security": [{"BearerAuth": []}], "tags": ["saved"], "summary": "Save or unsave a post", "operationId": "toggleSavePost", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}, "404": {"description": "Not Found"}}}},
        "/posts/{id}/like": {"post": {"security": [{"BearerAuth": []}], "tags": ["likes"], "summary": "Like or unlike a post", "operationId": "toggleLike", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/posts/{id}/comments": {
            "get": {"tags": ["comments"], "summary": "Threaded comments of a post", "operationId": "listComments", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "304": {"description": "Not Modified"}, "404": {"description": "Not Found"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["comments"], "summary": "Comment on a post (or reply to a comment)", "operationId": "createComment", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"type": "string", "name": "Idempotency-Key", "in": "header"}], "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}}
        },
        "/comments/{id}": {
            "put": {"security": [{"BearerAuth": []}], "tags": ["comments"], "summary": "Edit own comment", "operationId": "updateComment", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}, "404": {"description": "Not Found"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["comments"], "summary": "Delete own comment", "operationId": "deleteComment", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"204": {"description": "No Content"}, "403": {"description": "Forbidden"}, "404": {"description": "Not Found"}}}
        },
        "/follows": {"post": {"security": [{"BearerAuth": []}], "tags": ["follows"], "summary": "Follow a user", "operationId": "follow", "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}}},
        "/follows/{user_id}": {"delete": {"security": [{"BearerAuth": []}], "tags": ["follows"], "summary": "Unfollow a user", "operationId": "unfollow", "parameters": [{"type": "string", "name": "user_id", "in": "path", "required": true}], "responses": {"204": {"description": "No Content"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}}},
        "/follows/{user_id}/status": {"get": {"security": [{"BearerAuth": []}], "tags": ["follows"], "summary": "Whether the caller follows a user", "operationId": "followStatus", "parameters": [{"type": "string", "name": "user_id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/feed/following": {"get": {"security": [{"BearerAuth": []}], "tags": ["posts"], "summary": "Posts by users the caller follows", "operationId": "followingFeed", "responses": {"200": {"description": "OK"}}}},
        "/notifications": {"get": {"security": [{"BearerAuth": []}], "tags": ["notifications"], "summary": "Notifications of the caller, newest first", "operationId": "listNotifications", "responses": {"200": {"description": "OK"}, "304": {"description": "Not Modified"}}}},
        "/notifications/unread-count": {"get": {"security": [{"BearerAuth": []}], "tags": ["notifications"], "summary": "Unread notification count of the caller", "operationId": "unreadCount", "responses": {"200": {"description": "OK"}}}},
        "/notifications/read-all": {"post": {"security": [{"BearerAuth": []}], "tags": ["notifications"], "summary": "Mark every notification of the caller read", "operationId": "markAllRead", "responses": {"200": {"description": "OK"}}}},
        "/notifications/{id}/actions": {"post": {"security": [{"BearerAuth": []}], "tags": ["notifications"], "summary": "Mark read, mark unread or delete a notification", "operationId": "notificationAction", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "403": {"description": "Forbidden"}, "404": {"description": "Not Found"}}}},
        "/ws/notifications/{user_id}": {"get": {"tags": ["notifications"], "summary": "Live notification feed (WebSocket)", "operationId": "notificationsSocket", "parameters": [{"type": "string", "name": "user_id", "in": "path", "required": true}], "responses": {"101": {"description": "Switching Protocols"}, "403": {"description": "Forbidden"}, "503": {"description": "Service Unavailable"}}}}
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "go-social-backend API",
	Description:      "Social blogging backend with real-time notifications.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
