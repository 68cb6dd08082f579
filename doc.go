// Package taxless is a serverless expense-tracking backend for
// freelancer tax management.
//
// The module is organized around a single DynamoDB table:
//
//  1. dyndb: generic, fluent access layer over the table (CRUD, query
//     builder, batch operations, pagination tokens).
//  2. models: entities, single-table key layout, and request types.
//  3. services: business logic per entity (users, tax profiles,
//     expenses, receipts) plus the batch expense analyzer.
//  4. ai: Rekognition OCR and Gemini-backed receipt and tax analysis.
//  5. auth: Cognito identity operations and JWT issuing.
//  6. objectstore: S3 receipt image storage and upload key layout.
//
// Two Lambda entrypoints live under cmd/: expense-analyzer runs the
// scheduled batch analysis, image-processor consumes S3 upload events
// and runs the OCR-plus-LLM receipt pipeline.
package taxless
