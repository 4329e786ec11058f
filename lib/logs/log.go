package logs

import (
	"fmt"
	"os"
	"path/filepath"

	log "github.com/xuperchain/log15"
)

// OpenLog builds the log15 driver described by lc.
func OpenLog(lc *LogConf) (LogDriver, error) {
	lfmt := log.LogfmtFormat()
	switch lc.Fmt {
	case "json":
		lfmt = log.JsonFormat()
	}

	xlog := log.New("module", lc.Module)
	lvLevel, err := log.LvlFromString(lc.Level)
	if err != nil {
		return nil, fmt.Errorf("log level error.err:%v", err)
	}
	// set lowest level as level limit, this may improve performance
	xlog.SetLevelLimit(lvLevel)

	handlers := make([]log.Handler, 0, 3)
	if lc.Console || lc.ConsoleOnly {
		handlers = append(handlers, log.LvlFilterHandler(lvLevel, log.StreamHandler(os.Stderr, lfmt)))
	}
	if !lc.ConsoleOnly {
		fileh, err := openFileHandlers(lc, lvLevel, lfmt)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, fileh...)
	}
	xlog.SetHandler(log.SyncHandler(log.MultiHandler(handlers...)))

	return xlog, nil
}

// openFileHandlers writes lvLevel..Info to <name>.log and Warn and above to
// <name>.log.wf.
func openFileHandlers(lc *LogConf, lvLevel log.Lvl, lfmt log.Format) ([]log.Handler, error) {
	if err := os.MkdirAll(lc.Filepath, os.ModePerm); err != nil {
		return nil, fmt.Errorf("create log dir failed.path:%s,err:%v", lc.Filepath, err)
	}
	infoFile := filepath.Join(lc.Filepath, lc.Filename+".log")
	wfFile := filepath.Join(lc.Filepath, lc.Filename+".log.wf")

	var nmHandler, wfHandler log.Handler
	if lc.RotateInterval > 0 && lc.RotateBackups > 0 {
		nmHandler = log.Must.RotateFileHandler(infoFile, lfmt, lc.RotateInterval, lc.RotateBackups)
		wfHandler = log.Must.RotateFileHandler(wfFile, lfmt, lc.RotateInterval, lc.RotateBackups)
	} else {
		nmHandler = log.Must.FileHandler(infoFile, lfmt)
		wfHandler = log.Must.FileHandler(wfFile, lfmt)
	}
	if lc.Async {
		nmHandler = log.BufferedHandler(lc.BufSize, nmHandler)
		wfHandler = log.BufferedHandler(lc.BufSize, wfHandler)
	}

	return []log.Handler{
		log.BoundLvlFilterHandler(lvLevel, log.LvlError, nmHandler),
		log.LvlFilterHandler(log.LvlWarn, wfHandler),
	}, nil
}

// OpenLogger opens the driver and wraps it in a LogFitter with a fresh log id.
func OpenLogger(lc *LogConf) (Logger, error) {
	driver, err := OpenLog(lc)
	if err != nil {
		return nil, err
	}
	return NewLogger(driver, "")
}

// NewDiscardLogger drops everything. Used where no logger is configured.
func NewDiscardLogger() Logger {
	xlog := log.New()
	xlog.SetHandler(log.DiscardHandler())
	lf, _ := NewLogger(xlog, "discard")
	return lf
}
