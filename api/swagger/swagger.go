package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Campus Clearance API",
        "description": "Graduation clearance workflow: staged sign-offs, account verification, comments, and certificates",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Signup, login, and sessions"},
        {"name": "Clearance", "description": "Clearance request workflow"},
        {"name": "Comments", "description": "Clearance discussion threads"},
        {"name": "Accounts", "description": "Identity verification review"},
        {"name": "Audit", "description": "Audit trail access"}
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/auth/signup": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Register a student account",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SignupRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Email already registered"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"},
                    "403": {"description": "Account not enabled"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current user",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/clearance/apply": {
            "post": {
                "tags": ["Clearance"],
                "summary": "Apply for clearance",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Active request already exists"},
                    "412": {"description": "No professors assigned"}
                }
            }
        },
        "/clearance/status": {
            "get": {
                "tags": ["Clearance"],
                "summary": "Current clearance status",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No request found"}
                }
            }
        },
        "/clearance/requests/{id}": {
            "get": {
                "tags": ["Clearance"],
                "summary": "Fetch one request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Clearance"],
                "summary": "Cancel a request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Cancelled"},
                    "422": {"description": "Completed requests cannot be cancelled"}
                }
            }
        },
        "/clearance/requests/{id}/resubmit": {
            "post": {
                "tags": ["Clearance"],
                "summary": "Resubmit after rejection",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "No rejected stage to resubmit"}
                }
            }
        },
        "/clearance/requests/{id}/certificate": {
            "get": {
                "tags": ["Clearance"],
                "summary": "Certificate serial and signed download link",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No certificate issued"}
                }
            }
        },
        "/clearance/stages/{stage}/approve": {
            "post": {
                "tags": ["Clearance"],
                "summary": "Approve a stage",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "stage", "in": "path", "required": true, "type": "string", "enum": ["library", "cashier", "registrar"]},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/StageActionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Out-of-order or repeated stage action"}
                }
            }
        },
        "/clearance/stages/{stage}/reject": {
            "post": {
                "tags": ["Clearance"],
                "summary": "Reject a stage",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "stage", "in": "path", "required": true, "type": "string", "enum": ["library", "cashier", "registrar"]},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/StageActionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Rejection reason required"}
                }
            }
        },
        "/clearance/professor/approve": {
            "post": {
                "tags": ["Clearance"],
                "summary": "Record a professor approval",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/StageActionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No pending approval for this professor"}
                }
            }
        },
        "/clearance/professor/reject": {
            "post": {
                "tags": ["Clearance"],
                "summary": "Record a professor rejection",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/StageActionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Rejection reason required"}
                }
            }
        },
        "/certificates/download": {
            "get": {
                "tags": ["Clearance"],
                "summary": "Download a certificate PDF",
                "parameters": [
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "produces": ["application/pdf"],
                "responses": {
                    "200": {"description": "PDF stream"},
                    "403": {"description": "Invalid or expired token"}
                }
            }
        },
        "/comments": {
            "get": {
                "tags": ["Comments"],
                "summary": "List comments on a request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "request_id", "in": "query", "required": true, "type": "string"},
                    {"name": "since", "in": "query", "type": "string", "format": "date-time"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Comments"],
                "summary": "Post a comment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateCommentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Students cannot comment"}
                }
            }
        },
        "/comments/{id}": {
            "delete": {
                "tags": ["Comments"],
                "summary": "Delete a comment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "403": {"description": "Delete window expired"}
                }
            }
        },
        "/comments/{id}/resolve": {
            "post": {
                "tags": ["Comments"],
                "summary": "Toggle a comment's resolved flag",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/accounts/pending": {
            "get": {
                "tags": ["Accounts"],
                "summary": "List accounts pending identity review",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/accounts/approve": {
            "post": {
                "tags": ["Accounts"],
                "summary": "Approve an account",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AccountDecisionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/accounts/reject": {
            "post": {
                "tags": ["Accounts"],
                "summary": "Reject an account",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AccountDecisionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Rejection reason required"}
                }
            }
        },
        "/audit-logs": {
            "get": {
                "tags": ["Audit"],
                "summary": "List audit entries",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "user_id", "in": "query", "type": "string"},
                    {"name": "action", "in": "query", "type": "string"},
                    {"name": "resource", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "SignupRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"},
                "full_name": {"type": "string"},
                "selfie_image": {"type": "string", "description": "Base64-encoded selfie"},
                "document_image": {"type": "string", "description": "Base64-encoded identity document"}
            },
            "required": ["email", "password", "full_name"]
        },
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "StageActionRequest": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"},
                "comments": {"type": "string"}
            },
            "required": ["request_id"]
        },
        "CreateCommentRequest": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"},
                "text": {"type": "string"},
                "visibility": {"type": "string", "enum": ["ALL", "ADMINS_ONLY", "PROFESSORS_ONLY"]}
            },
            "required": ["request_id", "text"]
        },
        "AccountDecisionRequest": {
            "type": "object",
            "properties": {
                "user_id": {"type": "string"},
                "reason": {"type": "string"}
            },
            "required": ["user_id"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
