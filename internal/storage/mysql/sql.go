package mysql

// roomDocVersion marks rows holding a current room document. Rows with a
// lower version were written by the previous release and are only visible
// through ListRoomDocuments until migrated.
const roomDocVersion = 2

// -----------------------------------------------------------------------------
// ROOMS
// -----------------------------------------------------------------------------

const insertRoomSQL = `
INSERT INTO rooms (id, number, status, doc_version, doc, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

const getRoomSQL = `
SELECT doc FROM rooms WHERE id = ? AND doc_version = ?
`

const lockRoomSQL = getRoomSQL + ` FOR UPDATE`

const listRoomsSQL = `
SELECT doc FROM rooms WHERE doc_version = ? ORDER BY number
`

const updateRoomSQL = `
UPDATE rooms
SET number = ?, status = ?, doc = ?, updated_at = ?
WHERE id = ?
`

const deleteRoomSQL = `DELETE FROM rooms WHERE id = ?`

const listRoomDocumentsSQL = `SELECT id, doc FROM rooms ORDER BY id`

// Replacing a legacy row keeps the primary key and bumps the version.
const replaceRoomSQL = `
INSERT INTO rooms (id, number, status, doc_version, doc, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  number      = VALUES(number),
  status      = VALUES(status),
  doc_version = VALUES(doc_version),
  doc         = VALUES(doc),
  updated_at  = VALUES(updated_at)
`

const importRoomSQL = `
INSERT INTO rooms (id, number, status, doc_version, doc)
VALUES (?, ?, 'empty', 1, ?)
`

// -----------------------------------------------------------------------------
// GUESTS / MENU
// -----------------------------------------------------------------------------

const insertGuestSQL = `INSERT INTO guests (id, name, doc, created_at) VALUES (?, ?, ?, ?)`
const getGuestSQL = `SELECT doc FROM guests WHERE id = ?`
const listGuestsSQL = `SELECT doc FROM guests ORDER BY created_at DESC, id`
const updateGuestSQL = `UPDATE guests SET name = ?, doc = ? WHERE id = ?`
const deleteGuestSQL = `DELETE FROM guests WHERE id = ?`

const insertDishSQL = `INSERT INTO dishes (id, name, doc, created_at) VALUES (?, ?, ?, ?)`
const getDishSQL = `SELECT doc FROM dishes WHERE id = ?`
const listDishesSQL = `SELECT doc FROM dishes ORDER BY name, id`
const updateDishSQL = `UPDATE dishes SET name = ?, doc = ? WHERE id = ?`
const deleteDishSQL = `DELETE FROM dishes WHERE id = ?`

const insertOrderSQL = `
INSERT INTO orders (id, company_name, dish_name, order_date, doc)
VALUES (?, ?, ?, ?, ?)
`

// Text filters use the column collation (case-insensitive); results are
// re-checked in Go so every backend agrees on matching.
const listOrdersSQL = `
SELECT doc FROM orders
WHERE (? IS NULL OR order_date >= ?)
  AND (? IS NULL OR order_date <= ?)
  AND (? = '' OR company_name LIKE CONCAT('%', ?, '%'))
  AND (? = '' OR dish_name LIKE CONCAT('%', ?, '%'))
ORDER BY order_date DESC, id DESC
`

// -----------------------------------------------------------------------------
// BILLING
// -----------------------------------------------------------------------------

const insertBillSQL = `INSERT INTO bills (id, room_id, doc, created_at) VALUES (?, ?, ?, ?)`

const listBillsSQL = `
SELECT doc FROM bills
WHERE (? IS NULL OR created_at >= ?)
  AND (? IS NULL OR created_at <= ?)
ORDER BY created_at DESC, id DESC
LIMIT ?
`

const insertInvoiceSQL = `
INSERT INTO invoices (id, bill_id, status, doc, created_at)
VALUES (?, ?, ?, ?, ?)
`

const listInvoicesSQL = `SELECT doc FROM invoices ORDER BY created_at DESC, id DESC LIMIT ?`

const lockInvoiceSQL = `SELECT doc FROM invoices WHERE id = ? FOR UPDATE`

const updateInvoiceSQL = `UPDATE invoices SET status = ?, doc = ? WHERE id = ?`
