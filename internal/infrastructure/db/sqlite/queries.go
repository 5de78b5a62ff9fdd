package sqlitedb

const (
	insertBlock = `INSERT INTO block (number, root, timestamp) VALUES (?, ?, ?)
ON CONFLICT (number) DO NOTHING`
	selectBlock = `SELECT number, root, timestamp FROM block WHERE number = ?`

	insertInFlightExit = `INSERT INTO in_flight_exit (
    id, tx_hash, bond_owner, position, start_timestamp, exit_map, is_canonical
) VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO NOTHING`
	updateInFlightExit = `UPDATE in_flight_exit
SET tx_hash = ?, bond_owner = ?, position = ?, start_timestamp = ?, exit_map = ?, is_canonical = ?
WHERE id = ?`
	selectInFlightExit = `SELECT id, tx_hash, bond_owner, position, start_timestamp, exit_map, is_canonical
FROM in_flight_exit WHERE id = ?`
	selectAllInFlightExits = `SELECT id, tx_hash, bond_owner, position, start_timestamp, exit_map, is_canonical
FROM in_flight_exit ORDER BY position ASC, id ASC`

	insertWithdrawData = `INSERT INTO withdraw_data (
    exit_id, is_output, idx, output_id, exit_target, token, amount
) VALUES (?, ?, ?, ?, ?, ?, ?)`
	deleteWithdrawData = `DELETE FROM withdraw_data WHERE exit_id = ?`
	selectWithdrawData = `SELECT is_output, output_id, exit_target, token, amount
FROM withdraw_data WHERE exit_id = ? ORDER BY is_output ASC, idx ASC`
)
