package pgdb

const (
	insertBlock = `INSERT INTO block (number, root, timestamp) VALUES ($1, $2, $3)
ON CONFLICT (number) DO NOTHING`
	selectBlock = `SELECT number, root, timestamp FROM block WHERE number = $1`

	insertInFlightExit = `INSERT INTO in_flight_exit (
    id, tx_hash, bond_owner, position, start_timestamp, exit_map, is_canonical
) VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO NOTHING`
	updateInFlightExit = `UPDATE in_flight_exit
SET tx_hash = $1, bond_owner = $2, position = $3, start_timestamp = $4, exit_map = $5, is_canonical = $6
WHERE id = $7`
	selectInFlightExit = `SELECT id, tx_hash, bond_owner, position, start_timestamp, exit_map, is_canonical
FROM in_flight_exit WHERE id = $1`
	selectAllInFlightExits = `SELECT id, tx_hash, bond_owner, position, start_timestamp, exit_map, is_canonical
FROM in_flight_exit ORDER BY position ASC, id ASC`

	insertWithdrawData = `INSERT INTO withdraw_data (
    exit_id, is_output, idx, output_id, exit_target, token, amount
) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	deleteWithdrawData = `DELETE FROM withdraw_data WHERE exit_id = $1`
	selectWithdrawData = `SELECT is_output, output_id, exit_target, token, amount
FROM withdraw_data WHERE exit_id = $1 ORDER BY is_output ASC, idx ASC`
)
