package cmd

import (
	"savesync/cmd/client/cmd/auth"
	"savesync/cmd/client/cmd/autosave"
	"savesync/cmd/client/cmd/daemon"
	"savesync/cmd/client/cmd/save"
	"savesync/cmd/client/cmd/sync"
)

func init() {
	rootCmd.AddCommand(auth.AuthCmd)
	auth.AuthCmd.AddCommand(auth.RegisterCmd)
	auth.AuthCmd.AddCommand(auth.LoginCmd)
	auth.AuthCmd.AddCommand(auth.LogoutCmd)

	rootCmd.AddCommand(save.SaveCmd)
	save.SaveCmd.AddCommand(save.PutCmd)
	save.SaveCmd.AddCommand(save.GetCmd)
	save.SaveCmd.AddCommand(save.ListCmd)
	save.SaveCmd.AddCommand(save.DeleteCmd)

	rootCmd.AddCommand(autosave.AutoSaveCmd)
	autosave.AutoSaveCmd.AddCommand(autosave.TriggerCmd)
	autosave.AutoSaveCmd.AddCommand(autosave.LoadCmd)
	autosave.AutoSaveCmd.AddCommand(autosave.StatusCmd)

	rootCmd.AddCommand(sync.SyncCmd)
	rootCmd.AddCommand(daemon.DaemonCmd)
}
