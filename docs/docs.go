// Package docs registers the OpenAPI description served at /swagger/*.
// Regenerate with: swag init -g cmd/server/main.go
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
        "/auth/signup": {
            "post": {
                "description": "Creates an unverified account and emails a 6 digit code. Signing up again with an unverified email re-issues the code.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Sign up",
                "parameters": [
                    {"description": "Signup form", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.signupRequest"}}
                ],
                "responses": {
                    "200": {"description": "code re-issued to an unverified account", "schema": {"$ref": "#/definitions/handler.signupResponse"}},
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.signupResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorBody"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/handler.errorBody"}}
                }
            }
        },
        "/auth/verify-otp": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Verify email",
                "parameters": [
                    {"description": "Email and code", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.verifyOTPRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.accountEnvelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorBody"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorBody"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorBody"}}
                }
            }
        },
        "/auth/resend-otp": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Resend verification code",
                "parameters": [
                    {"description": "Email", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.emailRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.signupResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorBody"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorBody"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/handler.errorBody"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Login",
                "parameters": [
                    {"description": "Login credentials", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.loginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.loginResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorBody"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorBody"}}
                }
            }
        },
        "/auth/forgot-password": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Forgot password",
                "parameters": [
                    {"description": "Email", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.emailRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.messageResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorBody"}}
                }
            }
        },
        "/auth/reset-password": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Reset password",
                "parameters": [
                    {"description": "Email, code and new password", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.resetPasswordRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.messageResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorBody"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorBody"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Current account",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.accountEnvelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorBody"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorBody"}}
                }
            }
        },
        "/admin/create-seller": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Creates an active, verified, approved seller and emails the credentials. The password is generated when omitted.",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Create seller",
                "parameters": [
                    {"type": "string", "description": "Display name", "name": "name", "in": "formData", "required": true},
                    {"type": "string", "description": "Email", "name": "email", "in": "formData", "required": true},
                    {"type": "string", "description": "Initial password", "name": "password", "in": "formData"},
                    {"type": "string", "description": "Mobile number", "name": "mobile", "in": "formData"},
                    {"type": "string", "description": "Store name", "name": "storeName", "in": "formData", "required": true},
                    {"type": "string", "description": "Tax id", "name": "taxId", "in": "formData"},
                    {"type": "string", "description": "Business type", "name": "businessType", "in": "formData"},
                    {"type": "file", "description": "Profile image (jpeg, png, gif or webp, 5MB max)", "name": "profileImage", "in": "formData"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.createSellerResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorBody"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorBody"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorBody"}}
                }
            }
        },
        "/admin/approve-seller/{id}": {
            "put": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Approve seller",
                "parameters": [
                    {"type": "string", "description": "Seller account id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.sellerReviewResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorBody"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.errorBody"}}
                }
            }
        },
        "/admin/reject-seller/{id}": {
            "put": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Reject seller",
                "parameters": [
                    {"type": "string", "description": "Seller account id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.sellerReviewResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorBody"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.errorBody"}}
                }
            }
        },
        "/admin/pending-sellers": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "List pending sellers",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.pendingSellersResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorBody"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorBody"}}
                }
            }
        },
        "/admin/accounts/{id}": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "Deactivate account",
                "parameters": [
                    {"type": "string", "description": "Account id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorBody"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorBody"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.errorBody"}}
                }
            }
        },
        "/health/ready": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.readinessResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handler.readinessResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handler.storeRequest": {
            "type": "object",
            "required": ["storeName"],
            "properties": {
                "businessType": {"type": "string"},
                "storeName": {"type": "string"},
                "taxId": {"type": "string"}
            }
        },
        "handler.signupRequest": {
            "type": "object",
            "required": ["email", "name", "password"],
            "properties": {
                "email": {"type": "string"},
                "mobile": {"type": "string"},
                "name": {"type": "string"},
                "password": {"type": "string", "minLength": 6, "maxLength": 72},
                "role": {"type": "string", "enum": ["user", "seller"]},
                "store": {"$ref": "#/definitions/handler.storeRequest"}
            }
        },
        "handler.verifyOTPRequest": {
            "type": "object",
            "required": ["email", "otp"],
            "properties": {
                "email": {"type": "string"},
                "otp": {"type": "string"}
            }
        },
        "handler.emailRequest": {
            "type": "object",
            "required": ["email"],
            "properties": {
                "email": {"type": "string"}
            }
        },
        "handler.loginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "handler.resetPasswordRequest": {
            "type": "object",
            "required": ["email", "newPassword", "otp"],
            "properties": {
                "email": {"type": "string"},
                "newPassword": {"type": "string", "minLength": 6, "maxLength": 72},
                "otp": {"type": "string"}
            }
        },
        "handler.imageResponse": {
            "type": "object",
            "properties": {
                "publicId": {"type": "string"},
                "url": {"type": "string"}
            }
        },
        "handler.storeResponse": {
            "type": "object",
            "properties": {
                "businessType": {"type": "string"},
                "storeName": {"type": "string"},
                "taxId": {"type": "string"}
            }
        },
        "handler.sellerResponse": {
            "type": "object",
            "properties": {
                "reviewedAt": {"type": "string"},
                "reviewedBy": {"type": "string"},
                "status": {"type": "string"},
                "store": {"$ref": "#/definitions/handler.storeResponse"}
            }
        },
        "handler.accountResponse": {
            "type": "object",
            "properties": {
                "active": {"type": "boolean"},
                "createdAt": {"type": "string"},
                "createdBy": {"type": "string"},
                "email": {"type": "string"},
                "emailVerified": {"type": "boolean"},
                "id": {"type": "string"},
                "mobile": {"type": "string"},
                "name": {"type": "string"},
                "profileImage": {"$ref": "#/definitions/handler.imageResponse"},
                "role": {"type": "string"},
                "seller": {"$ref": "#/definitions/handler.sellerResponse"}
            }
        },
        "handler.signupResponse": {
            "type": "object",
            "properties": {
                "account": {"$ref": "#/definitions/handler.accountResponse"},
                "emailSent": {"type": "boolean"},
                "message": {"type": "string"}
            }
        },
        "handler.accountEnvelope": {
            "type": "object",
            "properties": {
                "account": {"$ref": "#/definitions/handler.accountResponse"},
                "message": {"type": "string"}
            }
        },
        "handler.loginResponse": {
            "type": "object",
            "properties": {
                "expiresAt": {"type": "string"},
                "token": {"type": "string"},
                "user": {"$ref": "#/definitions/handler.accountResponse"}
            }
        },
        "handler.messageResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"}
            }
        },
        "handler.sellerReviewResponse": {
            "type": "object",
            "properties": {
                "emailSent": {"type": "boolean"},
                "message": {"type": "string"},
                "seller": {"$ref": "#/definitions/handler.accountResponse"}
            }
        },
        "handler.createSellerResponse": {
            "type": "object",
            "properties": {
                "emailSent": {"type": "boolean"},
                "message": {"type": "string"},
                "passwordGenerated": {"type": "boolean"},
                "seller": {"$ref": "#/definitions/handler.accountResponse"}
            }
        },
        "handler.pendingSellersResponse": {
            "type": "object",
            "properties": {
                "count": {"type": "integer"},
                "sellers": {"type": "array", "items": {"$ref": "#/definitions/handler.accountResponse"}}
            }
        },
        "handler.errorBody": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "detail": {"type": "string"},
                "error": {"type": "string"}
            }
        },
        "handler.dependencyStatus": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "status": {"type": "string"}
            }
        },
        "handler.readinessResponse": {
            "type": "object",
            "properties": {
                "dependencies": {"type": "object", "additionalProperties": {"$ref": "#/definitions/handler.dependencyStatus"}},
                "status": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Enter the token with the ` + "`" + `Bearer ` + "`" + ` prefix",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Storefront Identity Service API",
	Description:      "Signup, email verification, role-gated login, seller approval and password recovery.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
