package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "School Results API",
        "description": "Score records, result locks, mark distributions and report cards.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Scores", "description": "Score records and batch saves"},
        {"name": "ResultLocks", "description": "Publication state of result groups"},
        {"name": "MarkDistributions", "description": "Component weight breakdowns and templates"},
        {"name": "ReportCards", "description": "Per-student term report cards"},
        {"name": "Sessions", "description": "Academic sessions"},
        {"name": "Grading", "description": "Grade band table"}
    ],
    "paths": {
        "/scores": {
            "get": {
                "tags": ["Scores"],
                "summary": "List score records",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "class_id", "in": "query", "type": "string"},
                    {"name": "subject", "in": "query", "type": "string"},
                    {"name": "session_id", "in": "query", "type": "string"},
                    {"name": "term", "in": "query", "type": "string", "enum": ["FIRST", "SECOND", "THIRD"]},
                    {"name": "exam_type", "in": "query", "type": "string", "enum": ["midterm", "final"]},
                    {"name": "student_id", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Out of scope", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scores/batch": {
            "post": {
                "tags": ["Scores"],
                "summary": "Save a batch of score records",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ScoreBatchRequest"}}
                ],
                "responses": {
                    "200": {"description": "Saved rows", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Out of scope or locked", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Store unavailable or partial batch", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scores/export": {
            "get": {
                "tags": ["Scores"],
                "summary": "Export score records as CSV",
                "produces": ["text/csv"],
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "CSV file"}}
            }
        },
        "/result-locks": {
            "get": {
                "tags": ["ResultLocks"],
                "summary": "List result locks",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/result-locks/{action}": {
            "post": {
                "tags": ["ResultLocks"],
                "summary": "Apply a lock transition",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "action", "in": "path", "required": true, "type": "string", "enum": ["lock", "unlock", "grant", "revoke"]},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LockMutationRequest"}}
                ],
                "responses": {
                    "200": {"description": "Lock state", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/mark-distributions": {
            "get": {
                "tags": ["MarkDistributions"],
                "summary": "Mark distribution of a session",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "session_id", "in": "query", "required": true, "type": "string"},
                    {"name": "term", "in": "query", "type": "string"},
                    {"name": "class_id", "in": "query", "type": "string"},
                    {"name": "exam_type", "in": "query", "type": "string"},
                    {"name": "school_id", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/mark-distributions/templates": {
            "get": {
                "tags": ["MarkDistributions"],
                "summary": "List distribution templates",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "put": {
                "tags": ["MarkDistributions"],
                "summary": "Create or replace a distribution template",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TemplateRequest"}}
                ],
                "responses": {
                    "200": {"description": "Template", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid weights", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["MarkDistributions"],
                "summary": "Delete a distribution template",
                "security": [{"BearerAuth": []}],
                "responses": {"204": {"description": "Deleted"}, "404": {"description": "No such template"}}
            }
        },
        "/report-cards/{studentId}": {
            "get": {
                "tags": ["ReportCards"],
                "summary": "Report card of a student",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "session_id", "in": "query", "required": true, "type": "string"},
                    {"name": "term", "in": "query", "required": true, "type": "string"},
                    {"name": "exam_type", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Not published or out of scope", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown student", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/report-cards/{studentId}/pdf": {
            "get": {
                "tags": ["ReportCards"],
                "summary": "Report card of a student as PDF",
                "produces": ["application/pdf"],
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "PDF file"}}
            }
        },
        "/sessions": {
            "get": {
                "tags": ["Sessions"],
                "summary": "List academic sessions",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "No source available", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/grade-bands": {
            "get": {
                "tags": ["Grading"],
                "summary": "Grade bands",
                "parameters": [
                    {"name": "percentage", "in": "query", "type": "number"},
                    {"name": "score", "in": "query", "type": "number"},
                    {"name": "exam_type", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        }
    },
    "definitions": {
        "ScoreBatchRequest": {
            "type": "object",
            "properties": {
                "rows": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "required": ["student_id", "subject", "class_id", "session_id", "term", "exam_type"],
                        "properties": {
                            "id": {"type": "string"},
                            "student_id": {"type": "string"},
                            "subject": {"type": "string"},
                            "class_id": {"type": "string"},
                            "session_id": {"type": "string"},
                            "term": {"type": "string"},
                            "exam_type": {"type": "string"},
                            "school_id": {"type": "string"},
                            "components": {"type": "array", "items": {"type": "object"}}
                        }
                    }
                }
            }
        },
        "LockMutationRequest": {
            "type": "object",
            "required": ["class_id", "session_id", "term", "exam_type"],
            "properties": {
                "class_id": {"type": "string"},
                "session_id": {"type": "string"},
                "term": {"type": "string"},
                "exam_type": {"type": "string"},
                "teacher_id": {"type": "integer"},
                "notes": {"type": "string"}
            }
        },
        "TemplateRequest": {
            "type": "object",
            "required": ["session_id", "term", "exam_type", "components"],
            "properties": {
                "session_id": {"type": "string"},
                "term": {"type": "string"},
                "exam_type": {"type": "string"},
                "school_id": {"type": "string"},
                "components": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "component_id": {"type": "string"},
                            "label": {"type": "string"},
                            "weight": {"type": "number"},
                            "order": {"type": "integer"}
                        }
                    }
                }
            }
        },
        "FieldError": {
            "type": "object",
            "properties": {
                "row": {"type": "integer"},
                "field": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "retryable": {"type": "boolean"},
                "details": {"type": "array", "items": {"$ref": "#/definitions/FieldError"}}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
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
