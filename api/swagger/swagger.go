package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "CBT Admin API",
        "description": "Administration backend for pre-university cycles: attendance, eligibility and enrollment review.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login and token lifecycle"},
        {"name": "Cycles", "description": "Academic cycle management"},
        {"name": "Students", "description": "Student roster management"},
        {"name": "Groups", "description": "Groups and class sections"},
        {"name": "Attendance", "description": "Attendance marks, stats and restrictions"},
        {"name": "Inbox", "description": "Pending enrollment and payment review"},
        {"name": "Uploads", "description": "Receipt and banner files"},
        {"name": "Reports", "description": "Attendance sheet exports"},
        {"name": "Notifications", "description": "Dispatched notification history"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Invalid refresh token"}
                }
            }
        },
        "/cycles": {
            "get": {
                "tags": ["Cycles"],
                "summary": "List cycles",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Cycles"],
                "summary": "Create cycle",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/cycles/{id}/summary": {
            "get": {
                "tags": ["Cycles"],
                "summary": "Cycle summary with live pending counts",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/cycles/{id}/eligibility": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Attendance stats and flags for every student",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/cycles/{id}/restrictions": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Restrict under-minimum students",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/cycles/{id}/reports/attendance": {
            "get": {
                "tags": ["Reports"],
                "summary": "Export attendance sheet as CSV or PDF",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/attendance/marks": {
            "put": {
                "tags": ["Attendance"],
                "summary": "Mark single attendance cell",
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/attendance/marks/bulk": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Bulk mark a session date",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/inbox/enrollments": {
            "get": {
                "tags": ["Inbox"],
                "summary": "List pending enrollments",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Inbox"],
                "summary": "Submit enrollment request",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/inbox/payments": {
            "get": {
                "tags": ["Inbox"],
                "summary": "List pending payments",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Inbox"],
                "summary": "Submit payment report",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/inbox/enrollments/history": {
            "get": {
                "tags": ["Inbox"],
                "summary": "List decided enrollments",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/inbox/enrollments/{id}/approve": {
            "post": {
                "tags": ["Inbox"],
                "summary": "Approve pending enrollment",
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Item is no longer pending"}
                }
            }
        },
        "/inbox/payments/{id}/approve": {
            "post": {
                "tags": ["Inbox"],
                "summary": "Approve pending payment",
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Item is no longer pending"}
                }
            }
        },
        "/uploads": {
            "post": {
                "tags": ["Uploads"],
                "summary": "Upload a receipt or banner file",
                "responses": {"201": {"description": "Created"}}
            }
        }
    },
    "definitions": {
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
