// Command rollcall reconciles videoconference attendance exports against
// training registrations.
//
// A typical session:
//
//	rollcall import export.csv --training T1 --live-start "2024-03-15 10:00" \
//	    --window-start "2024-03-15 10:30" --window-end "2024-03-15 11:30"
//	rollcall review show <run>
//	rollcall review confirm-all <run>
//	rollcall review select <run> "Ana" <registration-id>
//	rollcall commit <run>
//
// Review state lives in a JSON workspace per run under paths.workspace_dir,
// so each command is a separate process operating on the stored run.
package main
